package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/metaclassify-go/internal/progress"
	"github.com/aria-lang/metaclassify-go/internal/sequence"
)

func TestNewBuilder(t *testing.T) {
	tests := []struct {
		name    string
		k       int
		mode    Mode
		wantErr bool
	}{
		{"valid multi", 31, MultiOwner, false},
		{"valid single", 4, SingleOwner, false},
		{"zero k", 0, MultiOwner, true},
		{"negative k", -3, MultiOwner, true},
		{"unknown mode", 4, Mode(7), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBuilder(tt.k, tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, b)
		})
	}
}

func TestBuildSingleReference(t *testing.T) {
	b, err := NewBuilder(4, MultiOwner)
	require.NoError(t, err)

	added := b.Add(sequence.NewRecord("ref", "ACGTACGTACG", "A"))
	assert.Equal(t, 8, added)

	idx, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 4, idx.K())
	assert.Equal(t, []string{"ACGT", "CGTA", "GTAC", "TACG"}, idx.Keys())
	// every k-mer occurs twice in the reference
	for _, key := range idx.Keys() {
		assert.Equal(t, []string{"A", "A"}, idx.Lookup(key), key)
	}
	assert.Equal(t, []string{"A"}, idx.Labels())
	assert.Equal(t, 4, idx.LabelCounts()["A"])
}

func TestBuildMultiOwnerKeepsDuplicatesInOrder(t *testing.T) {
	b, err := NewBuilder(4, MultiOwner)
	require.NoError(t, err)

	b.Add(sequence.NewRecord("x1", "AAAAAA", "X"))
	b.Add(sequence.NewRecord("y1", "AAAA", "Y"))
	b.Add(sequence.NewRecord("x2", "CCCCAAAA", "X"))

	idx, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"X", "X", "X", "Y", "X"}, idx.Lookup("AAAA"))
	assert.Equal(t, []string{"X"}, idx.Lookup("CCCC"))
	assert.Nil(t, idx.Lookup("GGGG"))
	assert.False(t, idx.Contains("GGGG"))

	counts := idx.LabelCounts()
	assert.Equal(t, 5, counts["X"])
	assert.Equal(t, 1, counts["Y"])
}

func TestBuildSingleOwnerLastWriterWins(t *testing.T) {
	b, err := NewBuilder(4, SingleOwner)
	require.NoError(t, err)

	b.Add(sequence.NewRecord("x1", "AAAAAA", "X"))
	b.Add(sequence.NewRecord("y1", "AAAACCCC", "Y"))
	b.Add(sequence.NewRecord("z1", "CCCC", "Z"))

	idx, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, SingleOwner, idx.Mode())
	assert.Equal(t, []string{"Y"}, idx.Lookup("AAAA"))
	assert.Equal(t, []string{"Z"}, idx.Lookup("CCCC"))
	assert.Equal(t, []string{"Y"}, idx.Lookup("AACC"))
}

func TestBuildLabelFromHeader(t *testing.T) {
	b, err := NewBuilder(4, MultiOwner)
	require.NoError(t, err)

	b.Add(sequence.NewRecord("NC_000001 [Homo sapiens]", "ACGTA", ""))

	idx, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"Homo sapiens"}, idx.Lookup("ACGT"))
}

func TestBuildShortRecordWarns(t *testing.T) {
	b, err := NewBuilder(4, MultiOwner)
	require.NoError(t, err)

	assert.Equal(t, 0, b.Add(sequence.NewRecord("short", "ACG", "S")))
	b.Add(sequence.NewRecord("ok", "ACGT", "A"))

	require.Len(t, b.Warnings(), 1)
	assert.Equal(t, "short", b.Warnings()[0].RecordID)
	assert.Contains(t, b.Warnings()[0].String(), "shorter than k=4")

	idx, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestBuildSkipsAmbiguousKmers(t *testing.T) {
	b, err := NewBuilder(4, MultiOwner)
	require.NoError(t, err)

	assert.Equal(t, 2, b.Add(sequence.NewRecord("r", "ACGTNACGT", "A")))

	idx, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"ACGT"}, idx.Keys())
	assert.Equal(t, []string{"A", "A"}, idx.Lookup("ACGT"))
	for _, key := range idx.Keys() {
		assert.Len(t, key, 4)
		assert.NotContains(t, key, "N")
	}
}

func TestBuildNoReferenceData(t *testing.T) {
	b, err := NewBuilder(4, MultiOwner)
	require.NoError(t, err)

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrNoReferenceData)

	b, err = NewBuilder(4, MultiOwner)
	require.NoError(t, err)
	b.Add(sequence.NewRecord("short", "ACG", "S"))

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrNoReferenceData)
}

func TestBuilderSingleUse(t *testing.T) {
	b, err := NewBuilder(4, MultiOwner)
	require.NoError(t, err)
	b.Add(sequence.NewRecord("r", "ACGT", "A"))

	_, err = b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	require.Error(t, err)
}

func TestParallelBuildMatchesSequential(t *testing.T) {
	records := make([]sequence.Record, 0, 50)
	bases := []string{"ACGTTGCAAC", "TTGCAACGTA", "GGGCCCAAAT", "ACGTACGTAC", "AACCGGTTAA"}
	for i := 0; i < 50; i++ {
		label := fmt.Sprintf("taxon %d", i%7)
		records = append(records, sequence.NewRecord(fmt.Sprintf("r%d", i), strings.Repeat(bases[i%len(bases)], 3), label))
	}

	seq, _, err := Build(context.Background(), records, Options{K: 5, Workers: 1})
	require.NoError(t, err)

	par, _, err := Build(context.Background(), records, Options{K: 5, Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, seq.Keys(), par.Keys())
	for _, key := range seq.Keys() {
		assert.Equal(t, seq.Lookup(key), par.Lookup(key), key)
	}
	assert.Equal(t, seq.Digest(), par.Digest())
}

func TestBuildReportsProgress(t *testing.T) {
	records := []sequence.Record{
		sequence.NewRecord("a", "ACGTACGT", "A"),
		sequence.NewRecord("b", "TTTTGGGG", "B"),
		sequence.NewRecord("c", "AC", "C"),
	}

	events := make(chan progress.Event, 10)
	idx, warnings, err := Build(context.Background(), records, Options{K: 4, Workers: 2, Progress: events})
	require.NoError(t, err)
	close(events)

	assert.NotNil(t, idx)
	assert.Len(t, warnings, 1)

	var last progress.Event
	n := 0
	for ev := range events {
		assert.Equal(t, progress.PhaseIndexing, ev.Phase)
		last = ev
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, last.Processed)
	assert.Equal(t, 3, last.Total)
}

func TestBuildEmptyAndCancelled(t *testing.T) {
	_, _, err := Build(context.Background(), nil, Options{K: 4})
	assert.ErrorIs(t, err, ErrNoReferenceData)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []sequence.Record{sequence.NewRecord("a", "ACGTACGT", "A")}
	_, _, err = Build(ctx, records, Options{K: 4, Workers: 1})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("single")
	require.NoError(t, err)
	assert.Equal(t, SingleOwner, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, MultiOwner, m)

	_, err = ParseMode("both")
	require.Error(t, err)
}

func BenchmarkBuild(b *testing.B) {
	records := []sequence.Record{
		sequence.NewRecord("a", strings.Repeat("ACGTTGCAACGGATCCATGG", 500), "A"),
		sequence.NewRecord("b", strings.Repeat("TTGACCGATAGGCATCGATC", 500), "B"),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = Build(context.Background(), records, Options{K: 31})
	}
}
