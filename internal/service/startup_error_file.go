package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFile is created in the log directory when the daemon cannot
// start. It holds only the latest failure.
const StartupErrorFile = "startup-error.log"

// WriteStartupErrorFile reports err for failures that happen before the
// logger exists, such as a malformed weewx-zabbix.json. Errors writing the
// file itself are ignored; the caller also prints err to stderr.
func WriteStartupErrorFile(logDir string, err error) {
	if os.MkdirAll(logDir, 0755) != nil {
		return
	}

	body := fmt.Sprintf("[%s] STARTUP ERROR (pid %d)\n%v\n",
		time.Now().Format("2006-01-02 15:04:05"), os.Getpid(), err)
	_ = os.WriteFile(filepath.Join(logDir, StartupErrorFile), []byte(body), 0644)
}
