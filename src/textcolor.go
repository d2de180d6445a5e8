package dshot

// A lightweight reimplementation of Dire Wolf's textcolor.c

import (
	"fmt"
	"io"
	"os"
)

type dw_color_e int

const (
	DW_COLOR_INFO    dw_color_e = iota /* black */
	DW_COLOR_ERROR                     /* red */
	DW_COLOR_REC                       /* green */
	DW_COLOR_DECODED                   /* blue */
	DW_COLOR_XMIT                      /* magenta */
	DW_COLOR_DEBUG                     /* dark_green */
)

// Escape sequences for each colour.  Index 0 of the outer slice is
// level 1, the default.  Level 2 is for terminals with a dark background.
var text_color_sequences = [][]string{
	{"\x1b[0;30m", "\x1b[1;31m", "\x1b[0;32m", "\x1b[0;34m", "\x1b[1;35m", "\x1b[0;32m"},
	{"\x1b[1;37m", "\x1b[1;31m", "\x1b[1;32m", "\x1b[1;36m", "\x1b[1;35m", "\x1b[0;32m"},
}

const text_color_reset = "\x1b[0m"

// 0 disables colour.  A nil writer means whatever os.Stdout is now.
type textColor struct {
	w     io.Writer
	level int
}

func newTextColor(w io.Writer, level int) *textColor {
	if level < 0 || level > len(text_color_sequences) {
		level = 1
	}
	return &textColor{w: w, level: level}
}

func (tc *textColor) out() io.Writer {
	if tc.w == nil {
		return os.Stdout
	}
	return tc.w
}

func (tc *textColor) set(c dw_color_e) {
	if tc.level == 0 {
		return
	}
	fmt.Fprint(tc.out(), text_color_sequences[tc.level-1][c])
}

func (tc *textColor) reset() {
	if tc.level == 0 {
		return
	}
	fmt.Fprint(tc.out(), text_color_reset)
}

func (tc *textColor) printf(format string, a ...any) {
	fmt.Fprintf(tc.out(), format, a...)
}

// Status messages from the command line tools.
var console = newTextColor(nil, 0)

func text_color_init(level int) {
	console = newTextColor(nil, level)
}

func text_color_set(c dw_color_e) {
	console.set(c)
}

func dw_printf(format string, a ...any) {
	console.printf(format, a...)
}
