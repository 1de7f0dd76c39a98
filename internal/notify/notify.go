// Package notify wraps the optional host capabilities used to surface
// reminders: desktop notifications and speech synthesis. Every
// capability is detected at startup; a missing one is represented by a
// nil interface and every helper here accepts nil.
package notify

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"
)

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// Speaker reads text aloud.
type Speaker interface {
	Speak(text string) error
}

// commandNotifier runs an external notification program.
type commandNotifier struct {
	path string
	args func(title, body string) []string
}

func (n commandNotifier) Notify(title, body string) error {
	out, err := exec.Command(n.path, n.args(title, body)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s: %w (%s)", n.path, err, out)
	}
	return nil
}

// commandSpeaker runs an external speech program with the text as its
// final argument.
type commandSpeaker struct {
	path string
	args []string
}

func (s commandSpeaker) Speak(text string) error {
	args := append(append([]string{}, s.args...), text)
	out, err := exec.Command(s.path, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s: %w (%s)", s.path, err, out)
	}
	return nil
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// DetectNotifier returns a Notifier backed by notify-send on Linux or
// osascript on macOS, or nil when neither is available.
func DetectNotifier() Notifier {
	if runtime.GOOS == "darwin" {
		if p, err := lookPath("osascript"); err == nil {
			return commandNotifier{path: p, args: func(title, body string) []string {
				return []string{"-e", fmt.Sprintf("display notification %q with title %q", body, title)}
			}}
		}
		return nil
	}
	if p, err := lookPath("notify-send"); err == nil {
		return commandNotifier{path: p, args: func(title, body string) []string {
			return []string{"--app-name=remindme", title, body}
		}}
	}
	return nil
}

// DetectSpeaker returns a Speaker backed by the first speech program
// found on PATH, or nil.
func DetectSpeaker() Speaker {
	candidates := []commandSpeaker{
		{path: "say"},
		{path: "spd-say", args: []string{"--wait"}},
		{path: "espeak"},
	}
	for _, c := range candidates {
		if p, err := lookPath(c.path); err == nil {
			c.path = p
			return c
		}
	}
	return nil
}

// Send shows a notification if n is available. Failures are logged.
func Send(n Notifier, title, body string) {
	if n == nil {
		return
	}
	if err := n.Notify(title, body); err != nil {
		log.Printf("notify: %v", err)
	}
}

// Say speaks text if s is available. Failures are logged.
func Say(s Speaker, text string) {
	if s == nil {
		return
	}
	if err := s.Speak(text); err != nil {
		log.Printf("speech: %v", err)
	}
}
