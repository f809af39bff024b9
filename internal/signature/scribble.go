package signature

import (
	"hash/fnv"
	"math"
	"strings"
)

// Scribble draws a deterministic cursive-like stroke for name, one stroke
// per word. It lets terminal clients that have no pointer sign on a pad.
func Scribble(p *Pad, name string) error {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	seed := float64(h.Sum32()%97) / 97

	w, hgt := float64(p.width), float64(p.height)
	words := strings.Fields(name)
	if len(words) == 0 {
		words = []string{"x"}
	}

	span := (w * 0.8) / float64(len(words))
	for i, word := range words {
		x0 := w*0.1 + span*float64(i)
		n := 8 + 4*len(word)
		if err := p.PointerDown(Point{X: x0, Y: hgt / 2}); err != nil {
			return err
		}
		for j := 1; j <= n; j++ {
			t := float64(j) / float64(n)
			pt := Point{
				X: x0 + span*0.85*t,
				Y: hgt/2 + math.Sin(t*math.Pi*float64(len(word))+seed*math.Pi)*hgt*0.25,
			}
			if err := p.PointerMove(pt); err != nil {
				return err
			}
		}
		if err := p.PointerUp(); err != nil {
			return err
		}
	}
	return nil
}
