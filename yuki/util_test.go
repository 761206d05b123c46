package yuki

import (
	"testing"
)

func TestClip(t *testing.T) {
	check := func(x, lo, hi int, expected int) {
		res := Clip(x, lo, hi)
		if res != expected {
			t.Errorf("Clip(%d, %d, %d) = %d; want %d", x, lo, hi, res, expected)
		}
	}
	check(5, 0, 10, 5)
	check(-5, 0, 10, 0)
	check(15, 0, 10, 10)
}

func TestExt(t *testing.T) {
	check := func(fname string, expected string) {
		res := Ext(fname)
		if res != expected {
			t.Errorf("Ext(%s) = %s; want %s", fname, res, expected)
		}
	}
	check("x.jpg", "jpg")
	check("a/b.png", "png")
	check("noext", "")
}
