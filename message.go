package main

import "fmt"

const (
	MsgNoDetections = "No objects detected in the image."

	MsgFrameAccepted = "Frame accepted for processing."

	MsgQueueStopped = "The frame queue is not running; the frame was discarded."

	MsgFrameTooLarge = "Frame exceeds the maximum upload size."
)

func detectionMessage(count int) string {
	switch count {
	case 0:
		return MsgNoDetections
	case 1:
		return "1 object detected."
	default:
		return fmt.Sprintf("%d objects detected.", count)
	}
}
