package counter

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PawTalesApp/PawTales/internal/pkg/cache"
	"github.com/PawTalesApp/PawTales/internal/pkg/database"
)

const (
	storyViewsKey = "story:counters:views"
	petViewsKey   = "pet:counters:views"
)

var flusherOnce sync.Once

// StartFlusher spawns the background goroutine draining pending view
// counters to the database. Safe to call from multiple entrypoints; only the
// first call starts a ticker.
func StartFlusher(interval time.Duration) {
	flusherOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				if err := FlushAll(); err != nil {
					log.Printf("view counter flush failed: %v", err)
				}
			}
		}()
	})
}

// AddStoryView increments the pending view counter for a story in Redis
func AddStoryView(storyID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(storyID), 10)
	return cache.GetClient().HIncrBy(ctx, storyViewsKey, field, 1).Err()
}

// AddPetView increments the pending view counter for a shared pet profile in Redis
func AddPetView(petID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(petID), 10)
	return cache.GetClient().HIncrBy(ctx, petViewsKey, field, 1).Err()
}

// FlushAll flushes pending story and pet view counters to the database
func FlushAll() error {
	if err := flushHashToTable(storyViewsKey, "stories", "view_count"); err != nil {
		return err
	}
	if err := flushHashToTable(petViewsKey, "pets", "view_count"); err != nil {
		return err
	}
	return nil
}

// flushHashToTable drains a Redis hash atomically and applies batched increments.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	pairs := parseViewDeltas(data)
	if len(pairs) == 0 {
		return nil
	}

	sql, args := buildIncrementSQL(table, column, pairs)
	db := database.GetDB()
	if err := db.Exec(sql, args...).Error; err != nil {
		return err
	}
	return nil
}

type viewDelta struct {
	id  uint64
	inc int64
}

// parseViewDeltas converts a drained Redis hash into sorted id/increment
// pairs, skipping malformed fields and zero increments.
func parseViewDeltas(data map[string]string) []viewDelta {
	pairs := make([]viewDelta, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, viewDelta{id: id, inc: inc})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })
	return pairs
}

// buildIncrementSQL produces one batched statement:
// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN ( ... )
func buildIncrementSQL(table, column string, pairs []viewDelta) (string, []interface{}) {
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")
	return builder.String(), args
}
