// Package value defines the scalar values that flow through sqlpoll.
//
// Every column value read from a result set and every query parameter is a
// Value. The set of implementations is closed: Null, String, Int, Float,
// Decimal, Bool, Time and Bytes.
//
// # Ordering
//
// Compare implements the natural ordering used by watermarks:
//   - Int, Float and Decimal form one numeric family and compare by magnitude
//   - String compares lexicographically (byte order)
//   - Time compares chronologically
//   - Bool orders false before true
//   - Bytes compares bytewise
//
// Values from different families are incomparable and Compare returns a
// *TypeMismatchError. Null is never ordered; callers skip it.
//
// # Encoding
//
// MarshalJSON produces deterministic JSON: object keys sorted by UTF-16 code
// units, no HTML escaping, NFC-normalized strings.
package value
