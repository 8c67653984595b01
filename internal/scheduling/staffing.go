package scheduling

import "fmt"

// Role 委员会角色
type Role string

const (
	RolePresident Role = "president"
	RoleSecretary Role = "secretary"
	RoleVocal     Role = "vocal"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RolePresident, RoleSecretary, RoleVocal:
		return true
	}
	return false
}

// Unique 每个答辩至多一人的角色
func (r Role) Unique() bool {
	return r == RolePresident || r == RoleSecretary
}

// ReadyRule 就绪判定规则
type ReadyRule string

const (
	// ReadyQuorum 人数 >= min_committee
	ReadyQuorum ReadyRule = "quorum"
	// ReadyComposition 恰好一名主席、一名秘书、至少一名委员，且人数 >= min_committee
	ReadyComposition ReadyRule = "composition"
)

// ParseReadyRule 空串按 quorum 处理
func ParseReadyRule(s string) (ReadyRule, error) {
	switch ReadyRule(s) {
	case "", ReadyQuorum:
		return ReadyQuorum, nil
	case ReadyComposition:
		return ReadyComposition, nil
	}
	return "", fmt.Errorf("unknown ready rule %q", s)
}

// StaffingState 答辩的配备状态
type StaffingState string

const (
	StateUnstaffed        StaffingState = "unstaffed"
	StatePartiallyStaffed StaffingState = "partially_staffed"
	StateReady            StaffingState = "ready"
	StateFull             StaffingState = "full"
)

// Staffing 某答辩当前委员会构成
type Staffing struct {
	Count       int
	Min         int
	Max         int
	Presidents  int
	Secretaries int
	Vocals      int
}

// Tally 按角色统计
func Tally(roles []Role, min, max int) Staffing {
	s := Staffing{Count: len(roles), Min: min, Max: max}
	for _, r := range roles {
		switch r {
		case RolePresident:
			s.Presidents++
		case RoleSecretary:
			s.Secretaries++
		case RoleVocal:
			s.Vocals++
		}
	}
	return s
}

// Ready 按规则判断是否达到可答辩条件
func (s Staffing) Ready(rule ReadyRule) bool {
	if s.Count < s.Min {
		return false
	}
	if rule == ReadyComposition {
		return s.Presidents == 1 && s.Secretaries == 1 && s.Vocals >= 1
	}
	return true
}

// Full 人数达到上限
func (s Staffing) Full() bool { return s.Count >= s.Max }

// State 满员优先于就绪
func (s Staffing) State(rule ReadyRule) StaffingState {
	switch {
	case s.Count == 0:
		return StateUnstaffed
	case s.Full():
		return StateFull
	case s.Ready(rule):
		return StateReady
	default:
		return StatePartiallyStaffed
	}
}
