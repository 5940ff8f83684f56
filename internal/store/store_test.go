package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestFunctionCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	// Create
	fn, err := s.UpsertFunction(&models.FunctionInfo{
		Name:           "funcD",
		Signature:      "funcD_ii",
		Params:         []string{"n", "m"},
		ParamTypes:     []string{"int", "int"},
		StatementCount: 7,
		CostExpr:       "n*m",
	})
	if err != nil {
		t.Fatalf("UpsertFunction failed: %v", err)
	}
	if fn.ID == "" {
		t.Error("Function ID should not be empty")
	}
	if fn.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	// Get
	got, err := s.GetFunction("funcD_ii")
	if err != nil {
		t.Fatalf("GetFunction failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected function, got nil")
	}
	if got.CostExpr != "n*m" || got.StatementCount != 7 {
		t.Errorf("Unexpected entry: %+v", got)
	}
	if len(got.Params) != 2 || got.Params[1] != "m" {
		t.Errorf("Expected params [n m], got %v", got.Params)
	}

	// Update keeps the ID
	updated, err := s.UpsertFunction(&models.FunctionInfo{
		Name:           "funcD",
		Signature:      "funcD_ii",
		Params:         []string{"n", "m"},
		ParamTypes:     []string{"int", "int"},
		StatementCount: 9,
		CostExpr:       "n*m*2",
	})
	if err != nil {
		t.Fatalf("UpsertFunction update failed: %v", err)
	}
	if updated.ID != fn.ID {
		t.Errorf("Expected ID %s to be kept, got %s", fn.ID, updated.ID)
	}
	if updated.CostExpr != "n*m*2" || updated.StatementCount != 9 {
		t.Errorf("Update not applied: %+v", updated)
	}

	// List
	if _, err := s.UpsertFunction(&models.FunctionInfo{Name: "main", Signature: "main"}); err != nil {
		t.Fatalf("UpsertFunction main failed: %v", err)
	}
	fns, err := s.ListFunctions()
	if err != nil {
		t.Fatalf("ListFunctions failed: %v", err)
	}
	if len(fns) != 2 {
		t.Fatalf("Expected 2 functions, got %d", len(fns))
	}
	if fns[0].Signature != "funcD_ii" || fns[1].Signature != "main" {
		t.Errorf("Unexpected order: %s, %s", fns[0].Signature, fns[1].Signature)
	}
	if fns[1].Params == nil || len(fns[1].Params) != 0 {
		t.Errorf("Expected empty params for main, got %v", fns[1].Params)
	}

	// Delete
	if err := s.DeleteFunction("main"); err != nil {
		t.Fatalf("DeleteFunction failed: %v", err)
	}
	if err := s.DeleteFunction("main"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("Expected ErrFunctionNotFound, got %v", err)
	}
	got, err = s.GetFunction("main")
	if err != nil {
		t.Fatalf("GetFunction failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil for deleted function")
	}
}

func TestUpsertRequiresSignature(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.UpsertFunction(&models.FunctionInfo{Name: "x"}); err == nil {
		t.Error("Expected error for empty signature")
	}
}

func TestPDR(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	pdr, err := s.WritePDR("invoke", "abc123", "accepted", "sum_ii", "weight=1")
	if err != nil {
		t.Fatalf("WritePDR failed: %v", err)
	}
	if pdr.ID == "" {
		t.Error("PDR ID should not be empty")
	}
	if _, err := s.WritePDR("catalog.import", "def456", "ok", "manifest.yaml", ""); err != nil {
		t.Fatalf("WritePDR failed: %v", err)
	}

	all, err := s.ListPDR("", 0)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 records, got %d", len(all))
	}

	invokes, err := s.ListPDR("invoke", 10)
	if err != nil {
		t.Fatalf("ListPDR filtered failed: %v", err)
	}
	if len(invokes) != 1 {
		t.Fatalf("Expected 1 invoke record, got %d", len(invokes))
	}
	if invokes[0].Subject != "sum_ii" || invokes[0].Details != "weight=1" {
		t.Errorf("Unexpected record: %+v", invokes[0])
	}
}

func TestConcurrentUpserts(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpsertFunction(&models.FunctionInfo{
				Name:      fmt.Sprintf("f%d", i%5),
				Signature: fmt.Sprintf("f%d", i%5),
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("UpsertFunction failed: %v", err)
	}

	fns, err := s.ListFunctions()
	if err != nil {
		t.Fatalf("ListFunctions failed: %v", err)
	}
	if len(fns) != 5 {
		t.Errorf("Expected 5 distinct functions, got %d", len(fns))
	}
}

func newTestStore(t *testing.T) *Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
