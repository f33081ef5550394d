package convert

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TranscodeToMP3 re-encodes a recorded narration into a 128k MP3.
// Whisper handles MP3 reliably across all the formats browsers record.
func TranscodeToMP3(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "128k",
		dest,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
