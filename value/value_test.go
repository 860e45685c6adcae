package value

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Value
	}{
		{"null", "null", Null()},
		{"bool", "true", Bool(true)},
		{"int", "42", Int(42)},
		{"negative int", "-7", Int(-7)},
		{"float", "2.5", Float(2.5)},
		{"integral float", "2.0", Float(2)},
		{"exponent is float", "1e3", Float(1000)},
		{"int overflow becomes float", "9223372036854775808", Float(9223372036854775808)},
		{"text", `"hi"`, Text("hi")},
		{"array", `[2, "x", false]`, Array(Int(2), Text("x"), Bool(false))},
		{"nested", `{"a":[1,{"b":null}]}`, Object(map[string]Value{
			"a": Array(Int(1), Object(map[string]Value{"b": Null()})),
		})},
		{"surrounding whitespace", " \n[ ]\t", Array()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.text, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"", "[1,", "{", "[1] [2]", "nope", `"unterminated`, "[1]]"} {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Parse(%q) error = %v, want ErrParse", text, err)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{Bool(false), "false"},
		{Int(5), "5"},
		{Float(0), "0.0"},
		{Float(3), "3.0"},
		{Float(0.25), "0.25"},
		{Float(1e21), "1e+21"},
		{Float(math.NaN()), "null"},
		{Text(`a"b`), `"a\"b"`},
		{Array(Bool(false), Int(0), Float(0), Text("")), `[false,0,0.0,""]`},
		{Object(map[string]Value{"b": Int(1), "a": Int(2)}), `{"a":2,"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRoundTripKeepsKinds(t *testing.T) {
	in := Array(Int(2), Float(2), Text("2"))
	out, err := Parse(in.String())
	if err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if in.Index(i).Kind() != out.Index(i).Kind() {
			t.Errorf("element %d: kind %s, want %s", i, out.Index(i).Kind(), in.Index(i).Kind())
		}
	}
}

func TestEqualIsKindExact(t *testing.T) {
	if Int(2).Equal(Float(2)) {
		t.Error("Int(2) should not equal Float(2)")
	}
	a := Object(map[string]Value{"x": Array(Int(1))})
	b := Object(map[string]Value{"x": Array(Int(1))})
	if !a.Equal(b) {
		t.Error("structurally equal objects should be equal")
	}
}

func TestAccessors(t *testing.T) {
	v := Array(Int(1), Text("a"))
	if v.Len() != 2 {
		t.Errorf("Len() = %d, want 2", v.Len())
	}
	if !v.Index(5).IsNull() {
		t.Error("out of range index should be null")
	}
	if _, ok := v.Index(0).Text(); ok {
		t.Error("Text() on an int should report false")
	}
	obj := Object(map[string]Value{"k": Bool(true)})
	if b, ok := obj.Get("k"); !ok || !b.Equal(Bool(true)) {
		t.Errorf("Get(k) = %v, %v", b, ok)
	}
	if diff := cmp.Diff([]string{"k"}, obj.Keys()); diff != "" {
		t.Errorf("Keys() mismatch:\n%s", diff)
	}
}

func TestAnyAndFromAny(t *testing.T) {
	v := Object(map[string]Value{
		"n":    Int(3),
		"f":    Float(1.5),
		"list": Array(Text("a"), Null()),
	})
	back, err := FromAny(v.Any())
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(v) {
		t.Errorf("FromAny(Any()) = %s, want %s", back, v)
	}

	got, err := FromAny(map[string]any{"x": []int32{1, 2}, "y": uint8(7)})
	if err != nil {
		t.Fatal(err)
	}
	want := Object(map[string]Value{"x": Array(Int(1), Int(2)), "y": Int(7)})
	if !got.Equal(want) {
		t.Errorf("FromAny = %s, want %s", got, want)
	}

	if _, err := FromAny(map[int]string{1: "a"}); err == nil {
		t.Error("expected error for non-string map keys")
	}
	if _, err := FromAny(uint64(math.MaxUint64)); err == nil {
		t.Error("expected overflow error")
	}
}

func TestJSONInterop(t *testing.T) {
	type envelope struct {
		Result Value `json:"result"`
	}
	data, err := json.Marshal(envelope{Result: Array(Float(1), Int(1))})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"result":[1.0,1]}` {
		t.Errorf("Marshal = %s", data)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	if !env.Result.Equal(Array(Float(1), Int(1))) {
		t.Errorf("Unmarshal result = %s", env.Result)
	}
}
