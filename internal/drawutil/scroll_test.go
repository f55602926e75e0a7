package drawutil

import (
	"os"
	"testing"
)

func TestWheelScrollSize(t *testing.T) {
	const key = "mousescrollsize"
	mss, ok := os.LookupEnv(key)
	if ok {
		defer os.Setenv(key, mss)
	} else {
		defer os.Unsetenv(key)
	}

	tt := []struct {
		s      string
		extent int
		line   int
		n      int
	}{
		{"", 800, 20, 20},
		{"", 800, 0, 1},
		{"0", 800, 20, 20},
		{"-1", 800, 20, 20},
		{"two", 800, 20, 20},
		{"1", 800, 20, 20},
		{"3", 800, 20, 60},
		{"100", 800, 20, 800},
		{"%", 800, 20, 20},
		{"0%", 800, 20, 20},
		{"-42%", 800, 20, 20},
		{"five%", 800, 20, 20},
		{"10%", 800, 20, 80},
		{"50%", 800, 20, 400},
		{"123%", 800, 20, 800},
		{"0.01%", 800, 20, 1},
	}
	for _, tc := range tt {
		os.Setenv(key, tc.s)
		scrollLines = 0
		scrollPercent = 0
		n := wheelScrollSize(always{}, tc.extent, tc.line)
		if n != tc.n {
			t.Errorf("mousescrollsize of %q for extent %v line %v is %v; expected %v",
				tc.s, tc.extent, tc.line, n, tc.n)
		}
	}
}

type always struct{}

func (a always) Do(f func()) { f() }
