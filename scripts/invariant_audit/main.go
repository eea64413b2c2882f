package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
)

type violation struct {
	Resource   models.ResourceKind
	ResourceID string
	First      models.SlotDetail
	Second     models.SlotDetail
}

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall audit timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	slots, err := repository.NewWeeklySlotRepository(db).ListAll(ctx)
	if err != nil {
		log.Fatalf("failed to load weekly slots: %v", err)
	}

	violations := findViolations(slots)
	printReport(len(slots), violations)
	if len(violations) > 0 {
		os.Exit(1)
	}
}

// findViolations reports every pair of slots in one school that share a teacher or a
// classroom on the same day with overlapping ranges.
func findViolations(slots []models.SlotDetail) []violation {
	type bucketKey struct {
		school string
		kind   models.ResourceKind
		id     string
		day    models.DayOfWeek
	}

	buckets := make(map[bucketKey][]models.SlotDetail)
	var order []bucketKey
	for _, slot := range slots {
		for _, kind := range models.ResourceKinds {
			id := slot.TeacherID
			if kind == models.ResourceClassroom {
				id = slot.ClassroomID
			}
			key := bucketKey{school: slot.SchoolID, kind: kind, id: id, day: slot.DayOfWeek}
			if _, ok := buckets[key]; !ok {
				order = append(order, key)
			}
			buckets[key] = append(buckets[key], slot)
		}
	}

	var out []violation
	for _, key := range order {
		group := buckets[key]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if group[i].TimeRange.Overlaps(group[j].TimeRange) {
					out = append(out, violation{Resource: key.kind, ResourceID: key.id, First: group[i], Second: group[j]})
				}
			}
		}
	}
	return out
}

func printReport(total int, violations []violation) {
	fmt.Println("Weekly Slot Exclusivity Audit")
	fmt.Println("=============================")
	fmt.Printf("Slots scanned: %d\n", total)
	for _, v := range violations {
		fmt.Printf("[OVERLAP] school=%s %s=%s %s\n", v.First.SchoolID, v.Resource, v.ResourceID, v.First.DayOfWeek)
		fmt.Printf("  %s %s (%s)\n", v.First.ID, v.First.TimeRange, v.First.SubjectName)
		fmt.Printf("  %s %s (%s)\n", v.Second.ID, v.Second.TimeRange, v.Second.SubjectName)
	}
	fmt.Printf("Violations: %d\n", len(violations))
}
