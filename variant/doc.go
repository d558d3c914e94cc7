// Package variant implements self-describing variant values.
//
// A type string follows the GVariant grammar: the basic letters
// b y n q i u x t h d s o g, v for a boxed variant, m<T> maybe,
// a<T> array, (...) tuple and {KV} dictionary entry with a basic key.
//
//	v, err := variant.New("a{sd}", map[string]any{"PI": 3.14})
//	data := v.Bytes()
//	back, err := variant.FromBytes("a{sd}", data)
//	back.Equal(v) // true
//
// Values are immutable. Children are indexed from 1 and an index out of
// range yields nil. Serialization is the GVariant normal form, so buffers
// can be handed to natives unchanged.
package variant
