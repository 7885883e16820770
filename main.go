/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
/*
	blockvm runs block projects headless: sprites, clones, broadcasts and
	the cooperative scheduler of a visual programming environment

*/
package main

import "os"
import "fmt"
import "flag"
import "time"
import "net/http"
import "crypto/rand"
import "runtime/pprof"
import "github.com/google/uuid"
import "github.com/dc0d/onexit"
import "github.com/mattn/go-isatty"
import "github.com/fsnotify/fsnotify"
import "github.com/launix-de/blockvm/bus"
import "github.com/launix-de/blockvm/threads"

// workaround for flags package to allow multiple values
type arrayFlags []string

func (i *arrayFlags) String() string {
	return "dummy"
}

func (i *arrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

// watch reloads the project whenever one of its files changes on disk.
func watch(e *engine, files []string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		panic(err)
	}
	go func() {
		for {
			select {
			case /*event :=*/ <-watcher.Events:
				// flush all other events
				for {
					time.Sleep(10 * time.Millisecond) // delay a bit, so we don't read empty files
					select {
					case <-watcher.Events:
						// ignore
					default:
						goto to_reload
					}
				}
			to_reload:
				e.do(func() {
					if err := e.reload(); err != nil {
						fmt.Println(err)
						return
					}
					fmt.Println("project reloaded")
				})
				for _, f := range files {
					watcher.Add(f) // text editors rename, so we have to rewatch
				}
			case err := <-watcher.Errors:
				threads.Log.Warning("watch: %s", err.Error())
			}
		}
	}()
	for _, f := range files {
		if err := watcher.Add(f); err != nil {
			panic(err)
		}
	}
}

func main() {
	// init random generator for UUIDs
	uuid.SetRand(rand.Reader)

	// parse command line options
	var commands arrayFlags
	flag.Var(&commands, "c", "Execute a block script on the stage")

	settings := ""
	flag.StringVar(&settings, "settings", "", "YAML or JSON file with scheduler settings")

	logLevel := ""
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warning or error")

	remote := ""
	flag.StringVar(&remote, "remote", "", "Serve the websocket message bus at ADDR, e.g. :4711")

	docs := ""
	flag.StringVar(&docs, "docs", "", "Write the block reference as markdown into this folder and exit")

	profile := ""
	flag.StringVar(&profile, "profile", "", "Write a CPU profile to this file")

	trace := flag.Bool("trace", false, "Write a chrome://tracing file of all process steps")
	reload := flag.Bool("watch", false, "Reload the project when its files change")
	greenFlag := flag.Bool("go", true, "Click the green flag after loading")
	batch := flag.Bool("batch", !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()), "Run until all scripts have ended instead of opening a prompt")

	flag.Parse()
	files := flag.Args()

	if settings != "" {
		if err := threads.LoadSettings(settings); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if logLevel != "" {
		threads.Settings.LogLevel = logLevel
	}
	if *trace {
		threads.Settings.Trace = true
	}
	threads.InitSettings()

	if docs != "" {
		if err := threads.WriteDocumentation(docs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if !*batch {
		fmt.Print(`blockvm Copyright (C) 2026   Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;

`)
	}

	// init profiling
	if profile != "" {
		f, err := os.Create(profile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	e := newEngine(newConsoleHost(os.Stdout), files)
	if err := e.reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if remote != "" {
		e.bus = bus.New(e.stage)
		onexit.Register(e.bus.Close)
		go func() {
			threads.Log.Info("message bus listening on %s", remote)
			if err := http.ListenAndServe(remote, e.bus); err != nil {
				threads.Log.Error("message bus: %s", err.Error())
			}
		}()
	}
	if *greenFlag {
		e.stage.FireGreenFlag()
	}
	for _, command := range commands {
		threads.Log.Debug("executing %s", command)
		e.eval(command)
	}

	if *batch {
		// no prompt: run until nothing is left to do
		e.loop(nil, remote == "")
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		e.loop(stop, false)
		close(done)
	}()
	if *reload {
		watch(e, files)
	}
	fmt.Print(`
    Type :help to show help

`)
	repl(e)
	close(stop)
	<-done
	fmt.Println("Exit procedure finished")
}

// frameDuration is the minimum time between two steps of polling processes.
func frameDuration() time.Duration {
	rate := threads.Settings.FrameRate
	if rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

// loop is the scheduler goroutine. It steps the stage when a process needs
// it and runs tasks from the prompt, the watcher and the message bus in
// between. With untilIdle it returns once no process is left.
func (e *engine) loop(stop <-chan struct{}, untilIdle bool) {
	last := time.Time{}
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		if untilIdle && !e.stage.Threads().HasRunning() && len(e.tasks) == 0 {
			return
		}
		delay := time.Hour
		if at, ok := e.stage.NextWakeup(); ok {
			delay = time.Until(at)
			if next := frameDuration() - time.Since(last); next > delay {
				delay = next
			}
		}
		timer.Reset(delay)
		select {
		case <-stop:
			return
		case f := <-e.tasks:
			f()
		case <-e.pending():
			e.bus.Deliver()
		case <-timer.C:
			e.stage.Step()
			last = time.Now()
		}
	}
}
