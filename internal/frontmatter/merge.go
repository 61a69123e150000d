package frontmatter

type absent struct{}

// Absent is the removal signal for MergeKnown: a known key holding Absent is
// deleted from the result. nil and "" are ordinary values.
var Absent any = absent{}

// MergeKnown overlays known onto a copy of existing and returns the copy.
// Unknown keys of existing survive untouched; the position key is always
// stripped. Unlike the entity builder, empty strings and nulls are written
// through; only Absent removes a key.
func MergeKnown(existing, known *Record) *Record {
	out := existing.Clone()
	for _, k := range known.Keys() {
		v, _ := known.Get(k)
		if _, remove := v.(absent); remove {
			out.Delete(k)
			continue
		}
		out.Set(k, CloneValue(v))
	}
	out.Delete(PositionKey)
	return out
}
