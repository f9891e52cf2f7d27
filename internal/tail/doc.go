// Package tail turns lines from files or stdin into log records.
//
// A [Follower] reads each file from its last saved offset, keeps reading
// appended data when following (fsnotify), and persists offsets through a
// [ports.PositionRepository] so a restart resumes where it stopped. Only
// complete lines are emitted; a trailing partial line waits for its newline.
//
// A [Parser] renders one line as a record: plain text becomes the message,
// and with JSON enabled an object line is split into message, level,
// timestamp, logger and attributes.
package tail
