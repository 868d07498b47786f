package wifi

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner выполняет внешнюю команду и возвращает её stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// WpaCli — станция поверх wpa_cli; сеть добавляется один раз, дальше только select_network.
type WpaCli struct {
	path    string
	iface   string
	timeout time.Duration
	run     Runner
	netID   int
	netSSID string
}

// NewWpaCli создаёт драйвер; пустой path — "wpa_cli", timeout<=0 — 5s.
func NewWpaCli(path, iface string, timeout time.Duration) *WpaCli {
	if path == "" {
		path = "wpa_cli"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WpaCli{path: path, iface: iface, timeout: timeout, run: execRunner, netID: -1}
}

func (w *WpaCli) cmd(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	full := append([]string{"-i", w.iface}, args...)
	out, err := w.run(ctx, w.path, full...)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", w.path, args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (w *WpaCli) cmdOK(ctx context.Context, args ...string) error {
	out, err := w.cmd(ctx, args...)
	if err != nil {
		return err
	}
	if out != "OK" {
		return fmt.Errorf("%s %s: unexpected reply %q", w.path, args[0], out)
	}
	return nil
}

// status разбирает вывод "wpa_cli status" (key=value построчно).
func (w *WpaCli) status(ctx context.Context) (map[string]string, error) {
	out, err := w.cmd(ctx, "status")
	if err != nil {
		return nil, err
	}
	kv := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewBufferString(out))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if ok {
			kv[k] = v
		}
	}
	return kv, nil
}

// IsConnected — wpa_state=COMPLETED и назначен ip_address.
func (w *WpaCli) IsConnected(ctx context.Context) (bool, error) {
	kv, err := w.status(ctx)
	if err != nil {
		return false, err
	}
	return kv["wpa_state"] == "COMPLETED" && kv["ip_address"] != "", nil
}

// Connect добавляет сеть (если ssid новый) и выбирает её.
func (w *WpaCli) Connect(ctx context.Context, ssid, password string) error {
	if ssid == "" {
		return fmt.Errorf("ssid not configured")
	}
	if w.netID < 0 || w.netSSID != ssid {
		id, err := w.addNetwork(ctx, ssid, password)
		if err != nil {
			return err
		}
		w.netID, w.netSSID = id, ssid
	}
	return w.cmdOK(ctx, "select_network", strconv.Itoa(w.netID))
}

func (w *WpaCli) addNetwork(ctx context.Context, ssid, password string) (int, error) {
	out, err := w.cmd(ctx, "add_network")
	if err != nil {
		return -1, err
	}
	id, err := strconv.Atoi(out)
	if err != nil {
		return -1, fmt.Errorf("%s add_network: unexpected reply %q", w.path, out)
	}
	sid := strconv.Itoa(id)
	if err := w.cmdOK(ctx, "set_network", sid, "ssid", strconv.Quote(ssid)); err != nil {
		return -1, err
	}
	if password == "" {
		err = w.cmdOK(ctx, "set_network", sid, "key_mgmt", "NONE")
	} else {
		err = w.cmdOK(ctx, "set_network", sid, "psk", strconv.Quote(password))
	}
	if err != nil {
		return -1, err
	}
	if err := w.cmdOK(ctx, "enable_network", sid); err != nil {
		return -1, err
	}
	return id, nil
}

// Addrs возвращает ip_address, ssid, bssid и MAC из "wpa_cli status".
func (w *WpaCli) Addrs(ctx context.Context) (map[string]string, error) {
	kv, err := w.status(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, k := range []string{"ip_address", "ssid", "bssid", "address"} {
		if v, ok := kv[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}
