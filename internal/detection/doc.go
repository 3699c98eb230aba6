// Package detection runs the post-delivery person sweep.
//
// A Sweeper samples one frame per interval of video time with ffmpeg, sends
// each frame to an external detector worker over a length-prefixed msgpack
// protocol, and hands frames containing a person to an alert throttle.
// Screenshots are rendered only for detections the throttle lets through.
// The Janitor removes retained screenshots once they age out.
package detection
