//go:build ignore

package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

func main() {
	fmt.Println("🔥 Booking Engine Hot Reload Server")
	fmt.Println("📁 Watching for file changes...")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal(err)
	}
	defer watcher.Close()

	// Add directories to watch
	dirs := []string{".", "internal", "internal/handlers", "internal/services", "internal/models", "internal/kafka", "internal/logger", "internal/middleware", "internal/config", "internal/storage", "internal/commission"}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			err = watcher.Add(dir)
			if err != nil {
				log.Printf("Error watching %s: %v", dir, err)
			} else {
				fmt.Printf("👀 Watching: %s\n", dir)
			}
		}
	}

	var cmd *exec.Cmd
	restart := make(chan bool, 1)

	// Start the application
	go startApp(&cmd, restart)

	// Initial start
	restart <- true

	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Printf("📝 Changed: %s\n", event.Name)
			debounce.Reset(400 * time.Millisecond)
		case <-debounce.C:
			select {
			case restart <- true:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func startApp(cmd **exec.Cmd, restart chan bool) {
	for range restart {
		if *cmd != nil && (*cmd).Process != nil {
			fmt.Println("🛑 Stopping previous instance...")
			(*cmd).Process.Kill()
			(*cmd).Wait()
		}

		fmt.Println("🔨 Building...")
		build := exec.Command("go", "build", "-o", "booking-engine", ".")
		build.Stdout = os.Stdout
		build.Stderr = os.Stderr
		if err := build.Run(); err != nil {
			fmt.Println("❌ Build failed, waiting for next change")
			continue
		}

		fmt.Println("🚀 Starting booking-engine...")
		*cmd = exec.Command("./booking-engine")
		(*cmd).Stdout = os.Stdout
		(*cmd).Stderr = os.Stderr
		if err := (*cmd).Start(); err != nil {
			log.Printf("Failed to start: %v", err)
		}
	}
}
