package repo

import (
	"strings"
	"testing"
)

func TestLightweightTagLifecycle(t *testing.T) {
	r := newTestRepo(t)
	c := makeCommit(t, r, map[string]string{"f": "x\n"}, "c")

	if err := r.CreateTag("v1.0", c, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.CreateTag("v1.0", c, false); err == nil {
		t.Error("duplicate tag without force must fail")
	}
	if err := r.CreateTag("v1.0", c, true); err != nil {
		t.Errorf("forced re-tag: %v", err)
	}

	got, err := r.ResolveTag("v1.0")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if got != c {
		t.Errorf("tag = %s, want %s", got, c)
	}

	if err := r.DeleteTag("v1.0"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	tags, err := r.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("tags = %v, want none", tags)
	}
}

func TestAnnotatedTagStoresTagObject(t *testing.T) {
	r := newTestRepo(t)
	c := makeCommit(t, r, map[string]string{"f": "x\n"}, "c")

	tagHash, err := r.CreateAnnotatedTag("v2.0", c, "alice", "second release", false)
	if err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}

	tag, err := r.Store.ReadTag(tagHash)
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.TargetHash != c {
		t.Errorf("target = %s, want %s", tag.TargetHash, c)
	}
	payload := string(tag.Data)
	for _, want := range []string{"tag v2.0", "tagger alice", "second release"} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload missing %q:\n%s", want, payload)
		}
	}

	// The ref points at the tag object, while ResolveCommit peels it.
	refTarget, err := r.ResolveTag("v2.0")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if refTarget != tagHash {
		t.Errorf("ref target = %s, want tag object %s", refTarget, tagHash)
	}
}

func TestTagNameValidation(t *testing.T) {
	r := newTestRepo(t)
	c := makeCommit(t, r, map[string]string{"f": "x\n"}, "c")

	for _, bad := range []string{"", "has space", "a/../b", "/lead", "trail/"} {
		if err := r.CreateTag(bad, c, false); err == nil {
			t.Errorf("tag name %q accepted, want rejection", bad)
		}
	}
}
