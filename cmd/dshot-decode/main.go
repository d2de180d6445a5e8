package main

import (
	dshot "github.com/doismellburning/dshotdec/src"
)

func main() {
	dshot.DecodeMain()
}
