package objstore

import "path"

// Interview scopes object keys to one interview of one session
type Interview struct {
	Session   string
	Interview string
}

func (i Interview) root() string { return path.Join(i.Session, i.Interview) }

// Raw is the uploaded source media
func (i Interview) Raw(filename string) string { return path.Join(i.root(), "raw", filename) }

// Speakers is the diarization output listing per-speaker segments
func (i Interview) Speakers() string {
	return path.Join(i.root(), "output", "temp", "speakers.json")
}

// Logs is where run logs land
func (i Interview) Logs(name string) string { return path.Join(i.root(), "logs", name) }
