// Command llfile is a minimal file-transfer front end over pkg/datalink.
// It exists to drive the library from a real CLI the way the teacher's
// cmd/sdo_client drives pkg/sdo against a live node, built only as far as
// the out-of-scope upper layer named in spec.md §1 requires: three control
// packet kinds (START carrying the filename and size, DATA carrying file
// bytes, END closing the transfer) layered directly on top of Write/Read.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oss-datalink/gocanlink/pkg/datalink"
	"github.com/oss-datalink/gocanlink/pkg/linkconfig"
	log "github.com/sirupsen/logrus"
)

type packetKind byte

const (
	kindStart packetKind = 1
	kindData  packetKind = 2
	kindEnd   packetKind = 3
)

func main() {
	log.SetLevel(log.InfoLevel)

	device := flag.String("device", "/dev/ttyS0", "serial device path")
	baud := flag.Int("baud", 9600, "baud rate")
	role := flag.String("role", "send", "send or receive")
	path := flag.String("file", "", "send: file to transmit; receive: destination directory")
	timeoutS := flag.Int("timeout", 3, "per-frame retransmission timeout, seconds")
	retries := flag.Int("retries", 3, "maximum retransmissions before giving up")
	flag.Parse()

	if *path == "" {
		log.Fatal("llfile: -file is required")
	}

	var linkRole linkconfig.Role
	switch *role {
	case "send":
		linkRole = linkconfig.Transmitter
	case "receive":
		linkRole = linkconfig.Receiver
	default:
		log.Fatalf("llfile: unknown role %q, want send or receive", *role)
	}

	cfg := linkconfig.Default(*device, linkRole, *baud)
	cfg.Timeout = time.Duration(*timeoutS) * time.Second
	cfg.Retransmissions = *retries

	conn, err := datalink.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("llfile: open failed")
	}
	defer conn.Close(true)

	if linkRole == linkconfig.Transmitter {
		if err := sendFile(conn, cfg.MaxPayloadSize, *path); err != nil {
			log.WithError(err).Fatal("llfile: send failed")
		}
	} else {
		if err := receiveFile(conn, cfg.MaxPayloadSize, *path); err != nil {
			log.WithError(err).Fatal("llfile: receive failed")
		}
	}
}

// sendFile transmits path as one START packet, N DATA packets chunked to
// the link's MaxPayloadSize, and a trailing END packet.
func sendFile(conn *datalink.Conn, maxPayload int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	start := make([]byte, 1+8+len(name))
	start[0] = byte(kindStart)
	binary.BigEndian.PutUint64(start[1:9], uint64(info.Size()))
	copy(start[9:], name)
	if _, err := conn.Write(start); err != nil {
		return fmt.Errorf("llfile: sending START: %w", err)
	}

	chunkSize := maxPayload - 1
	buf := make([]byte, chunkSize)
	var sent int64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			pkt := make([]byte, n+1)
			pkt[0] = byte(kindData)
			copy(pkt[1:], buf[:n])
			if _, err := conn.Write(pkt); err != nil {
				return fmt.Errorf("llfile: sending DATA: %w", err)
			}
			sent += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if _, err := conn.Write([]byte{byte(kindEnd)}); err != nil {
		return fmt.Errorf("llfile: sending END: %w", err)
	}
	log.WithField("bytes", sent).Info("llfile: transfer complete")
	return nil
}

// receiveFile reads packets until END, reassembling the named file under
// destDir.
func receiveFile(conn *datalink.Conn, maxPayload int, destDir string) error {
	buf := make([]byte, maxPayload)

	n, err := conn.Read(buf)
	if err != nil {
		return err
	}
	if n < 9 || packetKind(buf[0]) != kindStart {
		return fmt.Errorf("llfile: expected START packet, got %d bytes kind %d", n, buf[0])
	}
	size := binary.BigEndian.Uint64(buf[1:9])
	name := string(buf[9:n])

	out, err := os.Create(filepath.Join(destDir, filepath.Base(name)))
	if err != nil {
		return err
	}
	defer out.Close()

	var received uint64
	for received < size {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("llfile: empty packet mid-transfer")
		}
		switch packetKind(buf[0]) {
		case kindData:
			if _, err := out.Write(buf[1:n]); err != nil {
				return err
			}
			received += uint64(n - 1)
		case kindEnd:
			log.WithField("bytes", received).Info("llfile: transfer ended early")
			return nil
		default:
			return fmt.Errorf("llfile: unexpected packet kind %d", buf[0])
		}
	}

	n, err = conn.Read(buf)
	if err != nil {
		return err
	}
	if n == 0 || packetKind(buf[0]) != kindEnd {
		return fmt.Errorf("llfile: expected END packet")
	}
	log.WithField("bytes", received).Info("llfile: transfer complete")
	return nil
}
