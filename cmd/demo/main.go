package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/petermattis/pager"
)

func main() {
	dynamic := flag.Bool("dynamic", false, "stream lines into the pager while it runs")
	lineNumbers := flag.Bool("numbers", false, "show line numbers")
	flag.Parse()

	pg := pager.New()
	_ = pg.SetPrompt("demo")
	if *lineNumbers {
		_ = pg.SetLineNumbers(pager.LineNumbersEnabled)
	}

	if *dynamic {
		_ = pg.SetExitStrategy(pager.PagerQuit)
		_ = pg.FollowOutput(true)
		go func() {
			for i := 0; ; i++ {
				if err := pg.Push(fmt.Sprintf("%s line %d\n",
					time.Now().Format("15:04:05"), i)); err != nil {
					return
				}
				time.Sleep(100 * time.Millisecond)
			}
		}()
		if err := pager.DynamicPaging(pg); err != nil {
			log.Fatal(err)
		}
		return
	}

	for i := 0; i < 200; i++ {
		fmt.Fprintf(pg, "line %d\n", i)
	}
	if err := pager.PageAll(pg); err != nil {
		log.Fatal(err)
	}
}
