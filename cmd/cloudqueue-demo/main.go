// Command cloudqueue-demo walks a Provider through put, get, abandon,
// persist and restore against a toy Job message, printing what the
// provider decided at each step. It is a runnable README, not a
// production entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cloudqueue/cloudqueue"
	"github.com/cloudqueue/cloudqueue/memblob"
	"github.com/cloudqueue/cloudqueue/memqueue"
)

// Job is the toy message this demo pushes through the provider.
type Job struct {
	ID         int    `json:"id"`
	Operation  string `json:"operation"`
	ShouldFail bool   `json:"should_fail"`
}

const jobsQueue = "jobs"

func main() {
	fmt.Println("=== cloudqueue demo ===")
	fmt.Println()

	ctx := context.Background()

	qsvc := memqueue.New()
	blobs := memblob.New()

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zl.Sync()

	provider := cloudqueue.NewProvider(qsvc, blobs,
		cloudqueue.WithLogger(cloudqueue.NewZapLogger(zl)),
	)

	unsubscribe := provider.Subscribe(func(kind, queue string, data any) {
		fmt.Printf("[event] %s on %q: %v\n", kind, queue, data)
	})
	defer unsubscribe()

	jobs := []Job{
		{ID: 1, Operation: "process payment", ShouldFail: false},
		{ID: 2, Operation: "send email", ShouldFail: true},
		{ID: 3, Operation: "generate report", ShouldFail: false},
	}

	fmt.Println("Putting jobs...")
	for _, j := range jobs {
		if err := cloudqueue.Put(ctx, provider, jobsQueue, j); err != nil {
			log.Fatalf("put job %d: %v", j.ID, err)
		}
		fmt.Printf("  put job %d: %s\n", j.ID, j.Operation)
	}
	fmt.Println()

	fmt.Println("Getting jobs...")
	got, err := cloudqueue.Get[Job](ctx, provider, jobsQueue, 10, 30*time.Second, 3)
	if err != nil {
		log.Fatalf("get: %v", err)
	}

	for _, j := range got {
		if j.ShouldFail {
			fmt.Printf("  job %d failed, abandoning\n", j.ID)
			if err := cloudqueue.Abandon(ctx, provider, j); err != nil {
				log.Fatalf("abandon job %d: %v", j.ID, err)
			}
			continue
		}
		fmt.Printf("  job %d succeeded, deleting\n", j.ID)
		if err := cloudqueue.Delete(ctx, provider, j); err != nil {
			log.Fatalf("delete job %d: %v", j.ID, err)
		}
	}
	fmt.Println()

	fmt.Println("Redelivering the abandoned job and persisting it as poison...")
	redelivered, err := cloudqueue.Get[Job](ctx, provider, jobsQueue, 10, 30*time.Second, 3)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	for _, j := range redelivered {
		fmt.Printf("  job %d redelivered, persisting with a custom reason\n", j.ID)
		if err := cloudqueue.Persist(ctx, provider, "manual-review", "operator requested a hold", j); err != nil {
			log.Fatalf("persist job %d: %v", j.ID, err)
		}
	}
	fmt.Println()

	fmt.Println("Listing the manual-review store...")
	keys, err := provider.ListPersisted(ctx, "manual-review")
	if err != nil {
		log.Fatalf("list persisted: %v", err)
	}
	for _, key := range keys {
		info, err := provider.GetPersisted(ctx, "manual-review", key)
		if err != nil {
			log.Fatalf("get persisted %q: %v", key, err)
		}
		fmt.Printf("  %s: queue=%s reason=%q dequeue_count=%d restorable=%v\n",
			key, info.Queue, info.Reason, info.DequeueCount, info.Restorable)

		fmt.Printf("  restoring %s...\n", key)
		if err := cloudqueue.RestorePersisted(ctx, provider, "manual-review", key); err != nil {
			log.Fatalf("restore persisted %q: %v", key, err)
		}
	}
	fmt.Println()

	count, err := provider.ApproximateCount(ctx, jobsQueue)
	if err != nil {
		log.Fatalf("approximate count: %v", err)
	}
	fmt.Printf("jobs queue now has approximately %d message(s)\n", count)

	if err := provider.Close(ctx); err != nil {
		log.Printf("close: %v", err)
	}
}
