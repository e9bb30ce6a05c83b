package preproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v string) Handler {
	return HandlerFunc(func(string, string) string { return v })
}

func TestRender(t *testing.T) {
	echo := HandlerFunc(func(cmd, arg string) string { return cmd + "(" + arg + ")" })
	p := New(Registry{"cmd": constant("Y"), "echo": echo})

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"substitution", "a {|cmd x} b", "a Y b"},
		{"unterminated", "a {|cmd x", "a {|cmd x"},
		{"brace after newline", "{|cmd x\nfoo}", "{|cmd x\nfoo}"},
		{"closed block before newline leaves trailing brace", "{|cmd x}\nfoo}", "Y\nfoo}"},
		{"newline before brace keeps later blocks", "{|cmd x\n{|echo y}", "{|cmd x\necho(y)"},
		{"argument with spaces", "{|echo a b c}", "echo(a b c)"},
		{"no argument", "[{|echo}]", "[echo()]"},
		{"unregistered", "a {|nope x} b", "a  b"},
		{"adjacent", "{|cmd 1}{|cmd 2}", "YY"},
		{"no markers", "plain text } {", "plain text } {"},
		{"empty", "", ""},
		{"lone marker at end", "x {|", "x {|"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Render(tc.in))
		})
	}
}

func TestReplacementNotRescanned(t *testing.T) {
	p := New(Registry{"wrap": constant("{|wrap again}")})
	assert.Equal(t, "<{|wrap again}>", p.Render("<{|wrap x}>"))
}

func TestRegistryCopied(t *testing.T) {
	reg := Registry{"cmd": constant("Y")}
	p := New(reg)
	reg["cmd"] = constant("Z")
	delete(reg, "cmd")
	assert.Equal(t, "Y", p.Render("{|cmd}"))
}

func TestRenderToStreams(t *testing.T) {
	p := New(Registry{"cmd": constant("Y")})
	body := strings.Repeat("line {|cmd x} tail\n", 1000)

	var b strings.Builder
	require.NoError(t, p.RenderTo(&b, body))
	assert.Equal(t, strings.Repeat("line Y tail\n", 1000), b.String())
}
