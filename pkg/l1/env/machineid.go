package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// IDLen is the length of the IDs derived by MachineID.
const IDLen = 12

// AppID scopes the machine ID so the raw ID is never published.
const AppID = "linebot"

// MachineID derives a stable ID identifying the machine. It falls back to
// the host name when the machine ID is not available.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		if id, err = os.Hostname(); err != nil {
			return ""
		}
		return id
	}
	if len(id) > IDLen {
		id = id[:IDLen]
	}
	return id
}
