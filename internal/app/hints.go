package app

import (
	"io"

	"github.com/fatih/color"

	"github.com/alanbriolat/yt-fetch/internal/run"
)

var hintColor = color.New(color.FgYellow)

func printEngineErrorHint(w io.Writer) {
	_, _ = hintColor.Fprintln(w, "\n[yt-fetch] ffmpeg/postprocessing error detected. Try again with --redownload (and optionally -k/--keep-video).")
}

func printForbiddenHint(w io.Writer) {
	_, _ = hintColor.Fprint(w,
		"\n[yt-fetch] Detected HTTP 403 Forbidden on failed items.\n"+
			"Tips:\n"+
			"  • Disable external downloader: --no-aria2c\n"+
			"  • Force IPv4: --force-ipv4\n"+
			"  • Use cookies (age/region): --cookies-from-browser firefox  (or your browser)\n"+
			"  • Update yt-dlp: python -m pip install -U yt-dlp\n\n",
	)
}

func printTranscodeHint(w io.Writer) {
	_, _ = hintColor.Fprintln(w, "[yt-fetch] ffmpeg hinted a problem. If outputs look corrupted or missing, re-run with --redownload (and optionally -k to keep intermediates).")
}

// reportHints prints advice for the signals seen during a run that ended with a non-zero code.
func reportHints(w io.Writer, s run.Snapshot, code int) {
	if code == 0 {
		return
	}
	if s.Forbidden {
		printForbiddenHint(w)
	}
	if s.TranscodeTrouble {
		printTranscodeHint(w)
	}
}
