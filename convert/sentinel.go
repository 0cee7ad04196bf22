package convert

// NotOnSource is used in a rule's source position to indicate the
// destination attribute has no counterpart on the source object. Its
// value, if any, comes from the rule's default.
const NotOnSource = "--not-on-source--"

// omitMarker is the internal "no value, skip this attribute" sentinel.
// It is distinguishable from every legitimate value, including nil and
// the empty string.
type omitMarker struct{}

func (omitMarker) String() string { return "<omit>" }

// Omit is the sentinel meaning "no value could be produced; skip this
// attribute entirely". Adapters return it from Get when an attribute is
// absent, and lifecycle hooks may return it to abort a conversion.
var Omit any = omitMarker{}

// IsOmit reports whether v is the Omit sentinel.
func IsOmit(v any) bool {
	_, ok := v.(omitMarker)
	return ok
}
