package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NikolayKlyatishev/vector-view/pkg/storage"
)

func TestSaveAndLoad(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Save(ctx, storage.DocConnections, []byte(`{"connections":{}}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx, storage.DocConnections)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != `{"connections":{}}` {
		t.Errorf("Load = %s, want %s", got, `{"connections":{}}`)
	}
	if s.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", s.Saves())
	}
}

func TestLoadNotFound(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), storage.DocPreferences)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
}

func TestSaveCopiesInput(t *testing.T) {
	s := New()
	ctx := context.Background()

	data := []byte(`{"a":1}`)
	if err := s.Save(ctx, "doc", data); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data[2] = 'b'

	got, _ := s.Load(ctx, "doc")
	if string(got) != `{"a":1}` {
		t.Errorf("Load = %s, stored document was mutated", got)
	}

	got[2] = 'c'
	again, _ := s.Load(ctx, "doc")
	if string(again) != `{"a":1}` {
		t.Errorf("Load = %s, returned slice aliases stored document", again)
	}
}

func TestInvalidName(t *testing.T) {
	s := New()
	if err := s.Save(context.Background(), "../x", nil); !errors.Is(err, storage.ErrInvalidName) {
		t.Errorf("Save error = %v, want ErrInvalidName", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Save(ctx, "doc", []byte(`{}`))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Load(ctx, "doc")
		}()
	}
	wg.Wait()

	if s.Saves() != 20 {
		t.Errorf("Saves() = %d, want 20", s.Saves())
	}
}
