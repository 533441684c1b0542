package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuess(t *testing.T) {
	tests := []struct {
		in   string
		want Hint
	}{
		{"", Null},
		{"~", Null},
		{"null", Null},
		{"Null", Null},
		{"NULL", Null},
		{"true", BoolTrue},
		{"True", BoolTrue},
		{"TRUE", BoolTrue},
		{"false", BoolFalse},
		{"False", BoolFalse},
		{"0", Integer},
		{"10", Integer},
		{"-10", Integer},
		{"+42", Integer},
		{"685_230", Integer},
		{"0xA", Integer},
		{"0XFF", Integer},
		{"0o17", Integer},
		{"0.1", Float},
		{".1", Float},
		{"-.1", Float},
		{"6.8523e+5", Float},
		{"685.230_15e+03", Float},
		{".inf", FloatInf},
		{"-.Inf", FloatInf},
		{"+.INF", FloatInf},
		{".nan", FloatNaN},
		{".NaN", FloatNaN},

		// Everything else is a string.
		{"hi", Unknown},
		{"y", Unknown},
		{"yes", Unknown},
		{"on", Unknown},
		{"no", Unknown},
		{"truex", Unknown},
		{"0x", Unknown},
		{"0o8", Unknown},
		{"1.2.3", Unknown},
		{"-", Unknown},
		{".", Unknown},
		{"10 20", Unknown},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Guess(tt.in), "input %q", tt.in)
	}
}

func TestShortLongTag(t *testing.T) {
	require.Equal(t, "!!str", ShortTag("tag:yaml.org,2002:str"))
	require.Equal(t, "!local", ShortTag("!local"))
	require.Equal(t, "tag:yaml.org,2002:int", LongTag("!!int"))
	require.Equal(t, "!local", LongTag("!local"))
}
