// Package value implements the dynamically typed payload exchanged through
// text primitives and its record codec.
//
// A record is a tag followed by colon-separated fields:
//
//	!                         Null
//	0:<decimal>               Int
//	1:<decimal|NaN|inf|-inf>  Float
//	2:<0|1>                   Bool
//	3:<base64>                String
//	4:<base64>                Bytes
//	5:<n>(:<base64 record>)*  Array
//	6:<n>(:<base64 name>:<base64 record>)*  Struct
//
// Base64 uses the standard padded alphabet. Nested records are base64 encoded
// as a whole so they never contain a separator. Decoding replaces invalid
// UTF-8 in strings, struct names and nested records with U+FFFD; this is the
// one place the round trip Decode(Encode(v)) == v does not hold.
//
// Lists of records outside a Value use the Array body without its tag, see
// EncodeList.
package value
