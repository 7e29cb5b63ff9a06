package predicate

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"
)

// EmitFunc receives the matching rows of one record from a partition.
// It is called concurrently for different partitions and must not retain
// rec after returning unless it calls rec.Retain.
type EmitFunc func(ctx context.Context, partition int, rec arrow.RecordBatch) error

// FilterPartitions filters each reader on its own goroutine. Every
// partition evaluates through its own Fork of p, so stateful functions
// never see rows from another partition.
//
// The first error from a reader or from emit cancels the remaining
// partitions and is returned.
func FilterPartitions(ctx context.Context, p *Predicate, readers []array.RecordReader, emit EmitFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, input := range readers {
		fork := p.Fork()
		g.Go(func() error {
			return filterPartition(ctx, fork, i, input, emit)
		})
	}
	return g.Wait()
}

func filterPartition(ctx context.Context, p *Predicate, partition int, input array.RecordReader, emit EmitFunc) error {
	r, err := NewFilteredReader(p, input, memory.DefaultAllocator)
	if err != nil {
		return fmt.Errorf("partition %d: %w", partition, err)
	}
	defer r.Release()

	for r.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(ctx, partition, r.RecordBatch()); err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("partition %d: %w", partition, err)
	}
	return nil
}
