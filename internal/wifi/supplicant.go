package wifi

import (
	"os/exec"
	"sync"

	"github.com/alexwizp/iot-backup/internal/logger"
)

// Supplicant — запуск wpa_supplicant дочерним процессом.
type Supplicant struct {
	Path      string   // по умолчанию "wpa_supplicant"
	Interface string   // -i wlan0
	Config    string   // -c /etc/wpa_supplicant/wpa_supplicant.conf
	Args      []string // доп. аргументы; пусто — "-D nl80211,wext"
}

// command собирает exec.Cmd без запуска.
func (s Supplicant) command() *exec.Cmd {
	path := s.Path
	if path == "" {
		path = "wpa_supplicant"
	}
	args := make([]string, 0, 4+len(s.Args))
	args = append(args, "-i", s.Interface)
	if s.Config != "" {
		args = append(args, "-c", s.Config)
	}
	if len(s.Args) == 0 {
		args = append(args, "-D", "nl80211,wext")
	} else {
		args = append(args, s.Args...)
	}
	return exec.Command(path, args...)
}

// Start запускает wpa_supplicant. Возвращает stop(), которую нужно вызвать при выходе.
// Ошибка запуска пишется в лог; stop в этом случае ничего не делает.
func (s Supplicant) Start(quiet bool) (stop func()) {
	if s.Interface == "" {
		return func() {}
	}
	cmd := s.command()
	if !quiet {
		w := logger.Writer("wpa_supplicant")
		cmd.Stdout = w
		cmd.Stderr = w
	}
	if err := cmd.Start(); err != nil {
		logger.Error("wifi: wpa_supplicant start %s: %v", s.Interface, err)
		return func() {}
	}
	logger.Info("wifi: wpa_supplicant started: %s -i %s", cmd.Path, s.Interface)
	var once sync.Once
	return func() {
		once.Do(func() {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
			}
		})
	}
}
