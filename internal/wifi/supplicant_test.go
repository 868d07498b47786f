package wifi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupplicant_Command(t *testing.T) {
	t.Parallel()
	cmd := Supplicant{Interface: "wlan0", Config: "/etc/wpa.conf"}.command()
	assert.Equal(t, []string{"wpa_supplicant", "-i", "wlan0", "-c", "/etc/wpa.conf", "-D", "nl80211,wext"}, cmd.Args)

	cmd = Supplicant{Path: "/usr/sbin/wpa_supplicant", Interface: "wlan1", Args: []string{"-D", "wext", "-d"}}.command()
	assert.Equal(t, []string{"/usr/sbin/wpa_supplicant", "-i", "wlan1", "-D", "wext", "-d"}, cmd.Args)
}

func TestSupplicant_StartFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	stop := Supplicant{Path: "/nonexistent/wpa_supplicant", Interface: "wlan0"}.Start(true)
	stop()
	stop()

	Supplicant{}.Start(true)()
}
