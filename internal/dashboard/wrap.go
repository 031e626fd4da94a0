package dashboard

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type wrapRune struct {
	r       rune
	width   int
	isSpace bool
}

// wrapText breaks text at spaces so no line exceeds width display cells.
// Words longer than width are split.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := make([]wrapRune, 0, len(text))
	for _, r := range text {
		runes = append(runes, wrapRune{r: r, width: runewidth.RuneWidth(r), isSpace: r == ' '})
	}

	var out strings.Builder
	line := make([]wrapRune, 0, width)
	lineWidth := 0
	lastSpaceIdx := -1
	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if item.isSpace {
				out.WriteString(runesString(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
				i++
				continue
			}
			if lastSpaceIdx >= 0 {
				out.WriteString(runesString(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]wrapRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(runesString(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(runesString(line))
	return out.String()
}

func runesString(line []wrapRune) string {
	var b strings.Builder
	for _, item := range line {
		b.WriteRune(item.r)
	}
	return b.String()
}

func lineWidthOf(line []wrapRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []wrapRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
