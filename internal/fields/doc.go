// Package fields declares the editable field types of a catalog record and
// the per-field policy table the verification gate consults.
//
// The original data model grew one service per field; here a single Policy
// capability object (required permission, uniqueness key, value validation)
// covers every field type, and Value is one concrete struct whose meaningful
// members are selected by the field-type tag.
package fields
