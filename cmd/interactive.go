package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"
)

// interactiveSelect lets user move through the provided lines with arrow keys and press Enter to
// view details of the selected entry. show is called with the index of the selected line.
func interactiveSelect(lines []string, show func(i int)) {
	if len(lines) == 0 {
		return
	}

	if runtime.GOOS == "windows" {
		enableVT()
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Println("(interactive selection not supported on this terminal)")
		for i := range lines {
			show(i)
		}
		return
	}
	defer func() { term.Restore(fd, oldState) }()

	reader := bufio.NewReader(os.Stdin)

	selected := 0

	redraw := func() {
		// Clear screen (ANSI reset to top + clear screen)
		fmt.Print("\033[H\033[2J")
		for i, l := range lines {
			prefix := "  "
			if i == selected {
				prefix = "> "
			}
			// raw mode does not translate \n
			fmt.Print(prefix + l + "\r\n")
		}
		fmt.Print("(↑/↓ to navigate, Enter to view details, Esc to quit)\r\n")
	}

	// open shows the selected entry in cooked mode and returns to the list.
	open := func() bool {
		term.Restore(fd, oldState)
		fmt.Println()
		show(selected)

		fmt.Print("\n(press Enter to return)")
		_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')

		oldState, err = term.MakeRaw(fd)
		if err != nil {
			return false
		}
		reader = bufio.NewReader(os.Stdin)
		redraw()
		return true
	}

	move := func(delta int) {
		next := selected + delta
		if next >= 0 && next < len(lines) {
			selected = next
			redraw()
		}
	}

	redraw()

	for {
		b1, err := reader.ReadByte()
		if err != nil {
			return
		}
		// Windows console arrow sequences (0 or 224, then code)
		if b1 == 0 || b1 == 224 {
			b2, _ := reader.ReadByte()
			switch b2 {
			case 72: // up
				move(-1)
			case 80: // down
				move(1)
			case 13: // Enter
				if !open() {
					return
				}
			}
			continue
		}

		switch b1 {
		case 27: // ESC or ANSI sequence
			if reader.Buffered() == 0 {
				fmt.Print("\r\n")
				return
			}
			b2, _ := reader.ReadByte()
			if b2 != '[' || reader.Buffered() == 0 {
				continue
			}
			b3, _ := reader.ReadByte()
			switch b3 {
			case 'A':
				move(-1)
			case 'B':
				move(1)
			}
		case 'k':
			move(-1)
		case 'j':
			move(1)
		case '\r', '\n':
			if !open() {
				return
			}
		case 3, 'q': // Ctrl-C
			fmt.Print("\r\n")
			return
		}
	}
}
