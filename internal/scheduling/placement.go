package scheduling

// NextFreeIndex 在 1..capacity 中按升序返回第一个未占用的序号；全部占用时 ok=false
func NextFreeIndex(occupied []int, capacity int) (index int, ok bool) {
	taken := make(map[int]bool, len(occupied))
	for _, i := range occupied {
		taken[i] = true
	}
	for i := 1; i <= capacity; i++ {
		if !taken[i] {
			return i, true
		}
	}
	return 0, false
}

// IndexInRange 1 <= index <= capacity
func IndexInRange(index, capacity int) bool {
	return index >= 1 && index <= capacity
}

// MaxIndex 占用序号的最大值，空集为 0
func MaxIndex(occupied []int) int {
	m := 0
	for _, i := range occupied {
		if i > m {
			m = i
		}
	}
	return m
}

// TribunalWindow 第 index 场答辩的派生起止时刻
func TribunalWindow(slotStart Clock, index, durationMinutes int) (start, end Clock) {
	start = slotStart.Add((index - 1) * durationMinutes)
	return start, start.Add(durationMinutes)
}

// RecomputedEnd 时段结束时刻 = 开始 + 最大序号 × 标准时长
func RecomputedEnd(slotStart Clock, occupied []int, durationMinutes int) Clock {
	return slotStart.Add(MaxIndex(occupied) * durationMinutes)
}

// CapacityFits capacity 场标准时长能否放入 [start, end)
func CapacityFits(start, end Clock, capacity, durationMinutes int) bool {
	return capacity*durationMinutes <= int(end-start)
}
