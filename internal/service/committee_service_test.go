package service

import (
	"errors"
	"testing"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
)

func setupCommitteeFixture(t *testing.T, rule string) (*fixture, *dto.TribunalResponse) {
	f := newFixture(t, rule)
	f.addTeachers("u1", "u2", "u3", "u4", "u5", "u6")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	return f, f.mustPlace("d1", slot.ID)
}

// ── Assign 测试 ──

func TestCommitteeService_Assign_RoleRules(t *testing.T) {
	f, tr := setupCommitteeFixture(t, "")

	a := f.mustAssign(tr.ID, "u1", "president")
	if a.Role != "president" || a.UserName != "用户u1" {
		t.Errorf("期望 president / 用户u1，实际 %s / %s", a.Role, a.UserName)
	}

	if _, err := f.assign(tr.ID, "u2", "president"); !errors.Is(err, ErrRoleTaken) {
		t.Errorf("期望 ErrRoleTaken，实际: %v", err)
	}
	if _, err := f.assign(tr.ID, "u1", "vocal"); !errors.Is(err, ErrUserAlreadyAssigned) {
		t.Errorf("期望 ErrUserAlreadyAssigned，实际: %v", err)
	}

	// 委员不受唯一角色限制
	f.mustAssign(tr.ID, "u2", "vocal")
	f.mustAssign(tr.ID, "u3", "vocal")
}

func TestCommitteeService_Assign_AccountCapability(t *testing.T) {
	f, tr := setupCommitteeFixture(t, "")
	f.addUser("boss", model.RoleAdmin)
	f.addUser("s1", model.RoleStudent)

	if _, err := f.assign(tr.ID, "boss", "vocal"); !errors.Is(err, ErrPrivilegedAccount) {
		t.Errorf("期望 ErrPrivilegedAccount，实际: %v", err)
	}
	if _, err := f.assign(tr.ID, "s1", "vocal"); !errors.Is(err, ErrNotEvaluator) {
		t.Errorf("期望 ErrNotEvaluator，实际: %v", err)
	}
	if _, err := f.assign(tr.ID, "nobody", "vocal"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
	if _, err := f.assign("missing", "u1", "vocal"); !errors.Is(err, ErrTribunalNotFound) {
		t.Errorf("期望 ErrTribunalNotFound，实际: %v", err)
	}
}

func TestCommitteeService_Assign_CommitteeFull(t *testing.T) {
	f, tr := setupCommitteeFixture(t, "")
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5"} {
		f.mustAssign(tr.ID, u, "vocal")
	}

	_, err := f.assign(tr.ID, "u6", "vocal")
	if !errors.Is(err, ErrCommitteeFull) {
		t.Errorf("期望 ErrCommitteeFull，实际: %v", err)
	}
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Error("满员应归类为校验错误")
	}
}

func TestCommitteeService_Assign_EvaluatorBusy(t *testing.T) {
	f, tr := setupCommitteeFixture(t, "")
	other := f.createSlot("2025-06-16", "09:30", "11:00", "B1", 2)
	overlapping := f.mustPlace("d2", other.ID) // 09:30-10:15

	f.mustAssign(tr.ID, "u1", "vocal") // 09:00-09:45
	if _, err := f.assign(overlapping.ID, "u1", "vocal"); !errors.Is(err, ErrEvaluatorBusy) {
		t.Errorf("期望 ErrEvaluatorBusy，实际: %v", err)
	}
}

func TestCommitteeService_Assign_SelfOnly(t *testing.T) {
	f, tr := setupCommitteeFixture(t, "")
	teacher := Caller{UserID: "u1", Role: model.RoleTeacher}

	_, err := f.svc.Committee.Assign(f.ctx, &dto.AssignRoleRequest{TribunalID: tr.ID, UserID: "u2", Role: "vocal"}, teacher)
	if !errors.Is(err, ErrAssignSelfOnly) || !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("期望 ErrAssignSelfOnly，实际: %v", err)
	}

	if _, err := f.svc.Committee.Assign(f.ctx, &dto.AssignRoleRequest{TribunalID: tr.ID, UserID: "u1", Role: "vocal"}, teacher); err != nil {
		t.Errorf("教师为自己认领应成功: %v", err)
	}
}

// ── Unassign 测试 ──

func TestCommitteeService_Unassign(t *testing.T) {
	f, tr := setupCommitteeFixture(t, "")
	a := f.mustAssign(tr.ID, "u1", "president")

	stranger := Caller{UserID: "u2", Role: model.RoleTeacher}
	if err := f.svc.Committee.Unassign(f.ctx, a.ID, stranger); !errors.Is(err, ErrUnassignForbidden) {
		t.Errorf("期望 ErrUnassignForbidden，实际: %v", err)
	}

	self := Caller{UserID: "u1", Role: model.RoleTeacher}
	if err := f.svc.Committee.Unassign(f.ctx, a.ID, self); err != nil {
		t.Fatalf("本人取消应成功: %v", err)
	}
	if err := f.svc.Committee.Unassign(f.ctx, a.ID, adminCaller); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("期望 ErrAssignmentNotFound，实际: %v", err)
	}

	// 主席席位释放后可再次分配
	f.mustAssign(tr.ID, "u2", "president")
}

// ── Staffing 测试 ──

func TestCommitteeService_Staffing_Quorum(t *testing.T) {
	f, tr := setupCommitteeFixture(t, string(scheduling.ReadyQuorum))

	st, _ := f.svc.Committee.Staffing(f.ctx, tr.ID)
	if st.State != string(scheduling.StateUnstaffed) {
		t.Errorf("期望 unstaffed，实际 %s", st.State)
	}

	f.mustAssign(tr.ID, "u1", "vocal")
	f.mustAssign(tr.ID, "u2", "vocal")
	if ready, _ := f.svc.Committee.IsReady(f.ctx, tr.ID); ready {
		t.Error("2 人不应达到下限 3")
	}

	f.mustAssign(tr.ID, "u3", "vocal")
	if ready, _ := f.svc.Committee.IsReady(f.ctx, tr.ID); !ready {
		t.Error("quorum 规则下 3 名委员应就绪")
	}

	f.mustAssign(tr.ID, "u4", "vocal")
	f.mustAssign(tr.ID, "u5", "vocal")
	if full, _ := f.svc.Committee.IsFull(f.ctx, tr.ID); !full {
		t.Error("5 人应满员")
	}
	st, _ = f.svc.Committee.Staffing(f.ctx, tr.ID)
	if st.State != string(scheduling.StateFull) || st.Count != 5 || st.Rule != "quorum" {
		t.Errorf("期望 full/5/quorum，实际 %+v", st)
	}
}

func TestCommitteeService_Staffing_Composition(t *testing.T) {
	f, tr := setupCommitteeFixture(t, string(scheduling.ReadyComposition))

	f.mustAssign(tr.ID, "u1", "vocal")
	f.mustAssign(tr.ID, "u2", "vocal")
	f.mustAssign(tr.ID, "u3", "vocal")
	if ready, _ := f.svc.Committee.IsReady(f.ctx, tr.ID); ready {
		t.Error("composition 规则下缺少主席与秘书不应就绪")
	}

	f.mustAssign(tr.ID, "u4", "president")
	f.mustAssign(tr.ID, "u5", "secretary")
	st, _ := f.svc.Committee.Staffing(f.ctx, tr.ID)
	if !st.Ready || st.State != string(scheduling.StateFull) {
		t.Errorf("期望就绪且满员，实际 %+v", st)
	}
}

func TestCommitteeService_List(t *testing.T) {
	f, tr := setupCommitteeFixture(t, "")
	f.mustAssign(tr.ID, "u1", "president")
	f.mustAssign(tr.ID, "u2", "secretary")

	members, err := f.svc.Committee.List(f.ctx, tr.ID)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("期望 2 名成员，实际 %d", len(members))
	}
	if _, err := f.svc.Committee.List(f.ctx, "missing"); !errors.Is(err, ErrTribunalNotFound) {
		t.Errorf("期望 ErrTribunalNotFound，实际: %v", err)
	}
}
