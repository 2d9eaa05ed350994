package flow

import (
	"context"
	"errors"

	"github.com/rez77/talabot/internal/speech"
)

// handleVoice admits the audio, transcribes it and re-enters the text path
// with the transcript, so a voice note behaves exactly like typing.
func (c *Controller) handleVoice(ctx context.Context, ev Event) Response {
	if c.speech == nil {
		return respond(textMessage(msgVoiceUnsupported))
	}

	transcript, err := c.speech.Transcribe(ctx, ev.Audio.Bytes, ev.Audio.DurationSeconds, ev.Audio.SizeBytes)
	switch {
	case errors.Is(err, speech.ErrAudioTooLarge):
		return respond(textMessage(audioTooLargeMessage(c.cfg.AudioMaxFileSizeMB)))
	case errors.Is(err, speech.ErrAudioTooLong):
		return respond(textMessage(audioTooLongMessage(c.cfg.AudioMaxDurationSeconds)))
	case err != nil:
		c.log.Error("transcription failed", "telegram_id", ev.TelegramID, "err", err)
		return respond(textMessage(msgVoiceFailed))
	}

	ev.Text = transcript
	ev.Audio = nil
	resp := c.handleText(ctx, ev)

	// echo the transcript first so the user sees what was understood
	resp.Messages = append([]Message{textMessage("🎙️ " + transcript)}, resp.Messages...)
	return resp
}
