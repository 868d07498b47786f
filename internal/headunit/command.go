// Package headunit — канал передачи времени на head unit по UART.
package headunit

import (
	"fmt"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

// EncodeDateCommand кодирует метку в команду "date MMDDhhmmYYYY.ss\r".
// Поля дополняются нулями до своей ширины; результат зависит только от ts.
func EncodeDateCommand(ts calendar.Timestamp) []byte {
	return []byte(fmt.Sprintf("date %02d%02d%02d%02d%04d.%02d\r",
		ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Year, ts.Second))
}
