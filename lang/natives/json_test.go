package natives

import (
	"io"
	"strings"
	"testing"

	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
	"github.com/stretchr/testify/require"
)

func testThread() *vm.Thread {
	th := &vm.Thread{Stdout: io.Discard, Stderr: io.Discard, Stdin: strings.NewReader("")}
	Register(th)
	return th
}

func TestParseJSONScalars(t *testing.T) {
	th := testThread()
	require.Equal(t, value.Nil, parseJSON(th, "null"))
	require.Equal(t, value.True, parseJSON(th, "true"))
	require.Equal(t, value.False, parseJSON(th, "false"))

	n := parseJSON(th, "-12.5e1")
	require.True(t, n.IsNumber())
	require.InDelta(t, -125, n.AsNumber(), 0)

	s := parseJSON(th, `"a\nb"`)
	require.True(t, s.IsObj())
	require.Equal(t, "a\nb", s.AsObj().(*value.StringObj).Chars)
}

func TestParseJSONContainers(t *testing.T) {
	th := testThread()
	v := parseJSON(th, `{"xs":[1,2],"ok":true}`)
	m, isMap := v.AsObj().(*value.MapObj)
	require.True(t, isMap)
	require.Equal(t, 2, m.Len())

	xs, ok := m.Get(th.Intern("xs"))
	require.True(t, ok)
	l, isList := xs.AsObj().(*value.ListObj)
	require.True(t, isList)
	require.Len(t, l.Elems, 2)
}

func TestParseJSONMalformedYieldsNil(t *testing.T) {
	th := testThread()
	for _, src := range []string{"", "{", "[1,", `{"a":}`, "tru", `"unterminated`, "1 2"} {
		require.Equalf(t, value.Nil, parseJSON(th, src), "input %q", src)
	}
}

func TestRoundTripPreservesKeyOrder(t *testing.T) {
	th := testThread()
	canonical := `{"z":1,"a":[true,null,"x"],"m":{"k":2.5}}`
	v := parseJSON(th, canonical)
	require.Equal(t, canonical, writeJSON(v))
}

func TestWriteJSONEscapes(t *testing.T) {
	th := testThread()
	v := th.StringValue("a\"b\\c\nd\x01")
	require.Equal(t, `"a\"b\\c\nd\u0001"`, writeJSON(v))
}

func TestWriteJSONNumbers(t *testing.T) {
	require.Equal(t, "1", writeJSON(value.Int(1)))
	require.Equal(t, "2.5", writeJSON(value.Number(2.5)))
	require.Equal(t, "-0.125", writeJSON(value.Number(-0.125)))
}

func TestWriteJSONFunctionIsNull(t *testing.T) {
	fn := value.ObjValue(&value.FunctionObj{Name: "f"})
	require.Equal(t, "null", writeJSON(fn))
}
