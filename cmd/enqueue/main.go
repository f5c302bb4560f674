package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/abdullah0408/server/internal/app"
	"github.com/abdullah0408/server/internal/platform/events"
)

type titleList []string

func (l *titleList) String() string { return strings.Join(*l, ",") }
func (l *titleList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var courseTitles titleList
	var chapterTitles titleList
	var courseID string
	var difficulty string
	var watch bool
	flag.Var(&courseTitles, "course", "title of a course to enqueue (repeatable)")
	flag.Var(&chapterTitles, "chapter", "title of a chapter to enqueue under -course-id (repeatable)")
	flag.StringVar(&courseID, "course-id", "", "course the -chapter rows belong to")
	flag.StringVar(&difficulty, "difficulty", "", "difficulty recorded on new courses")
	flag.BoolVar(&watch, "watch", false, "stream status events from redis until interrupted")
	flag.Parse()

	if len(courseTitles) == 0 && len(chapterTitles) == 0 && !watch {
		flag.Usage()
		os.Exit(2)
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	js := application.Services.Jobs

	for _, title := range courseTitles {
		c, err := js.EnqueueCourse(ctx, nil, title, "", difficulty)
		if err != nil {
			fmt.Printf("enqueue course %q: %v\n", title, err)
			continue
		}
		fmt.Printf("course %s %s %q\n", c.ID, c.Status, c.Title)
	}

	if len(chapterTitles) > 0 {
		cid, err := uuid.Parse(strings.TrimSpace(courseID))
		if err != nil {
			fmt.Printf("invalid -course-id %q: %v\n", courseID, err)
			os.Exit(2)
		}
		for i, title := range chapterTitles {
			ch, err := js.EnqueueChapter(ctx, nil, cid, i+1, title)
			if err != nil {
				fmt.Printf("enqueue chapter %q: %v\n", title, err)
				continue
			}
			fmt.Printf("chapter %s %s #%d %q\n", ch.ID, ch.Status, ch.ChapterNumber, ch.Title)
		}
	}

	if !watch {
		return
	}
	sub, ok := application.Clients.Bus.(events.Subscriber)
	if !ok {
		fmt.Println("-watch needs REDIS_ADDR; status events are only logged without redis")
		return
	}
	fmt.Println("watching status events (ctrl-c to stop)...")
	err = sub.Subscribe(ctx, func(ev events.StatusEvent) {
		fmt.Printf("%s %-15s %-7s %s %s -> %s (%s, attempts=%d)\n",
			ev.At.Format("15:04:05"), ev.Pipeline, ev.Entity, ev.JobID, ev.From, ev.To, ev.Reason, ev.Attempts)
	})
	if err != nil && ctx.Err() == nil {
		fmt.Printf("subscribe: %v\n", err)
		os.Exit(1)
	}
}
