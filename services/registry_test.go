package services

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateGroup(t *testing.T) {
	e := newEnv(t)

	group, err := e.registry.CreateGroup("Trip", "alice")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if !strings.HasPrefix(group.GroupID, "GRP-") {
		t.Errorf("expected GRP- prefixed id, got %q", group.GroupID)
	}
	if !group.IsActive {
		t.Error("new group should be active")
	}
	if len(group.Members) != 1 || group.Members[0].Username != "alice" {
		t.Errorf("expected creator as sole member, got %+v", group.Members)
	}
}

func TestCreateGroupRequiresName(t *testing.T) {
	e := newEnv(t)

	if _, err := e.registry.CreateGroup("", "alice"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestFindGroupMissing(t *testing.T) {
	e := newEnv(t)

	if _, err := e.registry.FindGroup("GRP-nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddMemberIdempotent(t *testing.T) {
	e := newEnv(t)

	group, err := e.registry.CreateGroup("Trip", "alice")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if _, err := e.registry.AddMember(group.GroupID, "bob"); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	again, err := e.registry.AddMember(group.GroupID, "bob")
	if err != nil {
		t.Fatalf("second AddMember failed: %v", err)
	}

	if len(again.Members) != 2 {
		t.Errorf("joining twice must not grow the roster: got %d members", len(again.Members))
	}
	if again.Members[0].Username != "alice" || again.Members[1].Username != "bob" {
		t.Errorf("roster must keep join order, got %+v", again.Members)
	}
}

func TestAddMemberMissingGroup(t *testing.T) {
	e := newEnv(t)

	if _, err := e.registry.AddMember("GRP-nope", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveExcludesClosed(t *testing.T) {
	e := newEnv(t)

	open, _ := e.registry.CreateGroup("Open", "alice")
	closed, _ := e.registry.CreateGroup("Closed", "alice")
	if _, err := e.registry.Close(closed.GroupID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	groups, err := e.registry.ListActive()
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(groups) != 1 || groups[0].GroupID != open.GroupID {
		t.Errorf("expected only the open group, got %+v", groups)
	}
}
