package scheduling

import "time"

// Interval 某一天内的半开时间区间 [Start, End)
type Interval struct {
	Date  time.Time
	Start Clock
	End   Clock
}

// Overlaps 半开区间相交：s1 < e2 且 s2 < e1
func Overlaps(s1, e1, s2, e2 Clock) bool {
	return s1 < e2 && s2 < e1
}

// Conflicts 同一天且时间相交
func (iv Interval) Conflicts(other Interval) bool {
	if !Day(iv.Date).Equal(Day(other.Date)) {
		return false
	}
	return Overlaps(iv.Start, iv.End, other.Start, other.End)
}

// ConflictsAny 与集合中任一区间冲突
func (iv Interval) ConflictsAny(busy []Interval) bool {
	for _, b := range busy {
		if iv.Conflicts(b) {
			return true
		}
	}
	return false
}
