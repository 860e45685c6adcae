// Package value implements the self-describing structured value exchanged
// with registered functions.
//
// A [Value] is a tagged tree: null, boolean, integer, floating point, text,
// ordered array, or object (name to value mapping). Its text form is JSON.
//
//	v, err := value.Parse(`[2, 3.5, "x"]`)
//	if err != nil {
//	    return err
//	}
//	n, _ := v.Index(0).Int() // 2
//
// Integers and floats are kept apart: [Parse] reads a literal without a
// fraction or exponent as an integer, and [Value.String] prints integral
// floats with a trailing ".0" so the kind survives a round trip.
package value
