package index

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/starford/ledgernotes/internal/notes"
	"github.com/starford/ledgernotes/internal/resolver"
)

const noteStore = "0xcafe::notes::NoteStore"

type staticResolver struct{ res resolver.Result }

func (s staticResolver) Resolve(context.Context, string) resolver.Result { return s.res }

// flakyReader serves one stored note until it is switched to failing.
type flakyReader struct {
	mu  sync.Mutex
	err error
}

func (r *flakyReader) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *flakyReader) Resource(context.Context, string, string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var body any
	err := json.Unmarshal([]byte(`{"type":"`+noteStore+`","data":{"entries":{
		"__variant__":"BPlusTreeMap",
		"root":{"is_leaf":true,"children":[
			{"key":"1700000000","value":{"__variant__":"Leaf","value":{"__variant__":"Message","message":"hello"}}}
		]}}}}`), &body)
	return body, err
}

func TestSync_LedgerOutageKeepsSnapshot(t *testing.T) {
	db := testDB(t)
	reader := &flakyReader{}
	svc, err := notes.NewService(
		staticResolver{res: resolver.Result{Address: "0xabc", Source: resolver.SourceIndexed}},
		reader, notes.Options{ResourceType: noteStore, MapField: "entries"}, quietLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := Sync(context.Background(), db, svc, []string{"alice"}, 1, quietLogger(), nil); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	before, _, _ := db.ListEntries("alice", 0, 0)
	if len(before) != 1 || before[0].Content != "hello" {
		t.Fatalf("entries after first sync = %+v", before)
	}

	reader.fail(errors.New("status 503"))
	var log eventLog
	if err := Sync(context.Background(), db, svc, []string{"alice"}, 1, quietLogger(), log.record); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	after, _, _ := db.ListEntries("alice", 0, 0)
	if len(after) != 1 || after[0].Content != "hello" {
		t.Errorf("entries after outage = %+v, want the previous snapshot", after)
	}
	if log.len() != 0 {
		t.Errorf("events = %v, want none", log.events)
	}
}
