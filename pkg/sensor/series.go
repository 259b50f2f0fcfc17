package sensor

import "sync"

// Point is one chart data point.
type Point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// Series is a rolling window of points with a monotonically increasing X.
// Once full, appending drops the oldest point so the view stays scrolled to
// the newest data.
type Series struct {
	mu        sync.Mutex
	maxPoints int
	nextX     int
	points    []Point
}

func NewSeries(maxPoints int) *Series {
	if maxPoints <= 0 {
		maxPoints = 50
	}
	return &Series{
		maxPoints: maxPoints,
		points:    make([]Point, 0, maxPoints),
	}
}

// Append adds y at the next X and returns the point.
func (s *Series) Append(y float64) Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Point{X: s.nextX, Y: y}
	s.nextX++
	if len(s.points) >= s.maxPoints {
		copy(s.points, s.points[1:])
		s.points = s.points[:len(s.points)-1]
	}
	s.points = append(s.points, p)
	return p
}

// Points returns a copy of the current window, oldest first.
func (s *Series) Points() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]Point, len(s.points))
	copy(ret, s.points)
	return ret
}

func (s *Series) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

// Resize changes the window size, dropping the oldest points if needed.
func (s *Series) Resize(maxPoints int) {
	if maxPoints <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxPoints = maxPoints
	if over := len(s.points) - maxPoints; over > 0 {
		s.points = append(s.points[:0], s.points[over:]...)
	}
}
