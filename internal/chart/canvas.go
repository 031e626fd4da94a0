package chart

// canvas holds one braille layer per series. Each character cell is 2 dots
// wide and 4 dots tall.
type canvas struct {
	rows, cols int
	layers     [][]uint8
}

func newCanvas(layers, rows, cols int) *canvas {
	c := &canvas{rows: rows, cols: cols, layers: make([][]uint8, layers)}
	for i := range c.layers {
		c.layers[i] = make([]uint8, rows*cols)
	}
	return c
}

// trace joins consecutive samples with straight segments, one sample per
// character column.
func (c *canvas) trace(layer int, values []float64, scale valueScale, pattern dashPattern) {
	plot := func(x, y int) {
		if pattern.draws(x) {
			c.dot(layer, x, y)
		}
	}
	for i, v := range values {
		x, y := i*2, scale.dotRow(v)
		if i == 0 {
			plot(x, y)
			continue
		}
		segment(2*(i-1), scale.dotRow(values[i-1]), x, y, plot)
	}
}

func (c *canvas) dot(layer, x, y int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= c.cols || cy >= c.rows {
		return
	}
	c.layers[layer][cy*c.cols+cx] |= dotBit(x%2, y%4)
}

// cell merges every layer at a character position. owner is the first layer
// with a dot there, or -1.
func (c *canvas) cell(cx, cy int) (mask uint8, owner int) {
	owner = -1
	if cx < 0 || cy < 0 || cx >= c.cols || cy >= c.rows {
		return 0, owner
	}
	for i, layer := range c.layers {
		bits := layer[cy*c.cols+cx]
		if bits != 0 && owner < 0 {
			owner = i
		}
		mask |= bits
	}
	return mask, owner
}

// segment walks the Bresenham line from (x0, y0) to (x1, y1) inclusive.
func segment(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	for e := dx + dy; ; {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// dotBit follows the U+2800 block: dots 1-3 and 7 in the left column,
// 4-6 and 8 in the right.
func dotBit(col, row int) uint8 {
	if col == 0 {
		return [4]uint8{0x01, 0x02, 0x04, 0x40}[row]
	}
	return [4]uint8{0x08, 0x10, 0x20, 0x80}[row]
}

func brailleRune(mask uint8) rune {
	return 0x2800 + rune(mask)
}
