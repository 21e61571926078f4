package bsync

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSlicePartialLastBlock(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefghij"), 10) // 100 bytes

	cases := []struct {
		blockSize int
		wantLens  []int
	}{
		{blockSize: 33, wantLens: []int{33, 33, 33, 1}},
		{blockSize: 50, wantLens: []int{50, 50}},
		{blockSize: 64, wantLens: []int{64, 36}},
		{blockSize: 200, wantLens: []int{100}},
	}

	for _, c := range cases {
		blocks, err := Slice(bytes.NewReader(data), int64(len(data)), c.blockSize)
		if err != nil {
			t.Fatal(err)
		}
		var gotLens []int
		for i, blk := range blocks {
			if blk.Index != i {
				t.Errorf("block %d has index %d", i, blk.Index)
			}
			start := i * c.blockSize
			if want := Sum(data[start : start+blk.Length]); blk.Sig != want {
				t.Errorf("block %d: got sig %s, want %s", i, blk.Sig, want)
			}
			gotLens = append(gotLens, blk.Length)
		}
		if diff := cmp.Diff(c.wantLens, gotLens); diff != "" {
			t.Errorf("block size %d: mismatch (-want +got):\n%s", c.blockSize, diff)
		}
	}
}

func TestSliceEmpty(t *testing.T) {
	blocks, err := Slice(bytes.NewReader(nil), 0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 0 {
		t.Errorf("got %d blocks, want 0", len(blocks))
	}
}

func TestSliceShortReader(t *testing.T) {
	_, err := Slice(bytes.NewReader([]byte("short")), 100, 64)
	if err == nil {
		t.Error("got no error slicing past the end of the data")
	}
}

func TestBlockLength(t *testing.T) {
	cases := []struct {
		index int
		size  int64
		want  int
	}{
		{0, 0, 0},
		{0, 10, 10},
		{0, 64, 64},
		{1, 64, 0},
		{1, 65, 1},
		{2, 200, 64},
		{3, 200, 8},
		{-1, 200, 0},
		{1 << 58, math.MaxInt64, 0}, // offset wraps to 0
		{1 << 57, math.MaxInt64, 0}, // offset wraps negative
	}
	for _, c := range cases {
		if got := BlockLength(c.index, c.size, 64); got != c.want {
			t.Errorf("BlockLength(%d, %d, 64) = %d, want %d", c.index, c.size, got, c.want)
		}
	}
}

func TestOffset(t *testing.T) {
	cases := []struct {
		index     int
		blockSize int
		want      int64
		wantOK    bool
	}{
		{0, 64, 0, true},
		{3, 64, 192, true},
		{-1, 64, 0, false},
		{math.MaxInt64/64 - 1, 64, (math.MaxInt64/64 - 1) * 64, true},
		{math.MaxInt64 / 64, 64, 0, false},
		{1 << 58, 64, 0, false},
		{1, 0, 0, false},
	}
	for _, c := range cases {
		got, ok := Offset(c.index, c.blockSize)
		if got != c.want || ok != c.wantOK {
			t.Errorf("Offset(%d, %d) = %d, %v; want %d, %v", c.index, c.blockSize, got, ok, c.want, c.wantOK)
		}
	}
}

func TestTableCursor(t *testing.T) {
	var tab Table

	if _, ok := tab.Next(); ok {
		t.Fatal("Next on an empty table reported a block")
	}

	tab.Replace([]Block{{Index: 0}, {Index: 1}, {Index: 2}})

	var (
		got     []int
		wrapped []bool
	)
	for i := 0; i < 4; i++ {
		idx, ok := tab.Next()
		if !ok {
			t.Fatal("Next reported no block")
		}
		got = append(got, idx)
		wrapped = append(wrapped, tab.Advance())
	}
	if diff := cmp.Diff([]int{0, 1, 2, 0}, got); diff != "" {
		t.Errorf("cursor mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, false, true, false}, wrapped); diff != "" {
		t.Errorf("wrap mismatch (-want +got):\n%s", diff)
	}

	// Cursor is now 1 and survives a replacement that keeps it in range.
	tab.Replace([]Block{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}})
	if idx, _ := tab.Next(); idx != 1 {
		t.Errorf("cursor after growing = %d, want 1", idx)
	}

	// Shrinking below the cursor resets it.
	tab.Replace([]Block{{Index: 0}})
	if idx, _ := tab.Next(); idx != 0 {
		t.Errorf("cursor after shrinking = %d, want 0", idx)
	}
}

func TestDirection(t *testing.T) {
	d, err := ParseDirection("push")
	if err != nil {
		t.Fatal(err)
	}
	if d.Invert() != Pull || Pull.Invert() != Push {
		t.Error("Invert does not swap push and pull")
	}
	if !Push.Sends() || Pull.Sends() {
		t.Error("only push should send")
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("got no error parsing an invalid direction")
	}
}

func TestSigHex(t *testing.T) {
	s := Sum([]byte("hello"))
	got, err := SigFromHex(s.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("got %s, want %s", got, s)
	}
	if _, err := SigFromHex("abc"); err == nil {
		t.Error("got no error parsing a short hex string")
	}
}
