package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mastertrainer/mt/internal/adapters/audio"
	"github.com/mastertrainer/mt/internal/ports"
	"github.com/spf13/cobra"
)

func newRecordCmd(app *app) *cobra.Command {
	var (
		input      string
		output     string
		interval   time.Duration
		sampleRate int
		maxLength  time.Duration
		realtime   bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture 16-bit PCM audio into a WAV file in fixed-interval chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = app.config.GetDuration(keyAudioChunkInterval)
			}
			if !cmd.Flags().Changed("sample-rate") {
				sampleRate = app.config.GetInt(keyAudioSampleRate)
			}

			source, err := openAudioInput(cmd, input)
			if err != nil {
				return err
			}
			defer source.Close()

			device := audio.NewPCMReaderDevice(source)
			device.Unpaced = !realtime

			summary, err := record(cmd.Context(), app, device, output, recordOptions{
				format:    ports.Format{SampleRate: sampleRate, Channels: audio.DefaultChannels},
				interval:  interval,
				maxLength: maxLength,
			})
			if err != nil {
				return err
			}

			return writeLine(cmd, "Recorded %d chunks, %d bytes (%s) to %s", summary.chunks, summary.bytes, summary.duration, output)
		},
	}

	cmd.Flags().StringVar(&input, "input", "-", "Raw s16le PCM or WAV input file, - for stdin")
	cmd.Flags().StringVar(&output, "out", "", "Output WAV file")
	cmd.Flags().DurationVar(&interval, "interval", audio.DefaultChunkInterval, "Chunk interval")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", audio.DefaultSampleRate, "Sample rate of raw input")
	cmd.Flags().DurationVar(&maxLength, "max", 0, "Stop after this long (0 records until the input ends)")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Pace frames at their real duration")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

type recordOptions struct {
	format    ports.Format
	interval  time.Duration
	maxLength time.Duration
}

type recordSummary struct {
	chunks   int
	bytes    int64
	duration time.Duration
}

func record(ctx context.Context, app *app, device ports.AudioDevice, output string, opts recordOptions) (recordSummary, error) {
	file, err := os.Create(output)
	if err != nil {
		return recordSummary{}, fmt.Errorf("create output: %w", err)
	}
	defer file.Close()

	wav, err := audio.NewWAVWriter(file, opts.format)
	if err != nil {
		return recordSummary{}, err
	}

	var (
		summary  recordSummary
		writeErr error
	)
	recorder := audio.NewRecorder(device, audio.Config{
		Format:        opts.format,
		ChunkInterval: opts.interval,
		OnChunk: func(chunk []byte) {
			summary.chunks++
			if _, err := wav.Write(chunk); err != nil && writeErr == nil {
				writeErr = err
			}
		},
	}, app.logger)

	err = recorder.Record(ctx, func(ctx context.Context) error {
		var limit <-chan time.Time
		if opts.maxLength > 0 {
			timer := time.NewTimer(opts.maxLength)
			defer timer.Stop()
			limit = timer.C
		}

		select {
		case <-recorder.Captured():
		case <-limit:
		case <-ctx.Done():
		}
		return nil
	})
	if err = errors.Join(err, writeErr, wav.Close()); err != nil {
		return recordSummary{}, fmt.Errorf("record: %w", err)
	}

	summary.bytes = wav.BytesWritten()
	bytesPerSecond := int64(opts.format.SampleRate * opts.format.Channels * 2)
	if bytesPerSecond > 0 {
		summary.duration = time.Duration(summary.bytes * int64(time.Second) / bytesPerSecond)
	}
	return summary, nil
}

func openAudioInput(cmd *cobra.Command, input string) (io.ReadCloser, error) {
	if input == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}

	file, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return file, nil
}
