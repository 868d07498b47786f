// atlas-time-sync — агент времени контроллера: держит DS3231 по сетевому времени
// (ipgeolocation.io, NTP как запасной) и раз в интервал передаёт время head unit по UART.
//
// Использование:
//
//	atlas-time-sync --config atlas-time-sync.yml   — запуск цикла
//	atlas-time-sync validate --config ...          — проверить конфиг и выйти
//
// Секреты можно передать через окружение: ATLAS_API_KEY, ATLAS_WIFI_PASSWORD.
package main

import (
	"os"

	"github.com/alexwizp/iot-backup/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
