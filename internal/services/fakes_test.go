package services

import (
	"context"
	"fmt"
	"sync"

	"hearth/internal/ai"
	"hearth/internal/provider"
)

// fakeClassifier is a scripted ai.Classifier. Zero value returns empty
// results; set the fields to script behavior.
type fakeClassifier struct {
	mu sync.Mutex

	classifyFn  func(items []ai.ClassifyInput, categories []string) ([]ai.ClassifyResult, error)
	extractFn   func(data []byte, mimeType string) (*ai.ReceiptExtraction, error)
	classifyLog [][]ai.ClassifyInput
}

func (f *fakeClassifier) ClassifyTransactions(_ context.Context, items []ai.ClassifyInput, categories []string) ([]ai.ClassifyResult, error) {
	f.mu.Lock()
	f.classifyLog = append(f.classifyLog, items)
	f.mu.Unlock()

	if f.classifyFn != nil {
		return f.classifyFn(items, categories)
	}
	return nil, nil
}

func (f *fakeClassifier) ExtractReceipt(_ context.Context, data []byte, mimeType string, _ []string) (*ai.ReceiptExtraction, error) {
	if f.extractFn != nil {
		return f.extractFn(data, mimeType)
	}
	return &ai.ReceiptExtraction{}, nil
}

func (f *fakeClassifier) batches() [][]ai.ClassifyInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.classifyLog
}

// fakeProviderClient serves a scripted sequence of sync pages keyed by
// cursor, optionally failing on chosen request numbers.
type fakeProviderClient struct {
	mu sync.Mutex

	pages    map[string]*provider.SyncPage
	failOn   map[int]bool
	requests int
	balances []provider.AccountBalance
	cursors  []string
}

func (f *fakeProviderClient) SyncPage(_ context.Context, _ string, cursor string, _ int) (*provider.SyncPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests++
	f.cursors = append(f.cursors, cursor)
	if f.failOn[f.requests] {
		return nil, fmt.Errorf("provider outage")
	}

	page, ok := f.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return page, nil
}

func (f *fakeProviderClient) GetBalances(_ context.Context, _ string) ([]provider.AccountBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances, nil
}
