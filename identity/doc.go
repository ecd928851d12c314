// Package identity resolves the person at the checkout desk to an enrolled student.
//
// A student is identified by id, by registration number, by a biometric feature vector, or by a
// still image that a feature extraction service turns into such a vector. Biometric matching is a
// nearest-neighbor search over enrolled templates behind the Index interface; LinearIndex scans
// all templates, which is fine for a school-sized enrollment.
package identity
