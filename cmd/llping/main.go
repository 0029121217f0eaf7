// Command llping drives a single Write/Read round trip over either a real
// serial device or, with -loop, an in-process fault-injecting loopback, and
// reports the resulting link statistics. It exists to exercise pkg/datalink
// end to end the way the teacher's cmd/sdo_client exercises pkg/sdo against
// a live or virtual CAN bus.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/oss-datalink/gocanlink/pkg/datalink"
	"github.com/oss-datalink/gocanlink/pkg/linkconfig"
	"github.com/oss-datalink/gocanlink/pkg/serialport/testutil"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetLevel(log.InfoLevel)

	device := flag.String("device", "/dev/ttyS0", "serial device path")
	baud := flag.Int("baud", 9600, "baud rate")
	role := flag.String("role", "tx", "tx or rx")
	timeoutS := flag.Int("timeout", 3, "per-frame retransmission timeout, seconds")
	retries := flag.Int("retries", 3, "maximum retransmissions before giving up")
	loop := flag.Bool("loop", false, "use an in-process loopback instead of -device")
	dropPct := flag.Float64("loop-drop-pct", 0, "loopback: percent chance a byte is dropped")
	corruptPct := flag.Float64("loop-corrupt-pct", 0, "loopback: percent chance a byte is corrupted")
	flag.Parse()

	r := linkconfig.Transmitter
	if *role == "rx" {
		r = linkconfig.Receiver
	}

	cfg := linkconfig.Default(*device, r, *baud)
	cfg.Timeout = time.Duration(*timeoutS) * time.Second
	cfg.Retransmissions = *retries

	var conn *datalink.Conn
	var err error
	var peerDone chan struct{}

	if *loop {
		conn, peerDone, err = openLoopback(cfg, *dropPct, *corruptPct)
	} else {
		conn, err = datalink.Open(cfg)
	}
	if err != nil {
		log.WithError(err).Fatal("llping: open failed")
	}

	if cfg.Role == linkconfig.Transmitter {
		payload := []byte("llping")
		n, err := conn.Write(payload)
		if err != nil {
			log.WithError(err).Fatal("llping: write failed")
		}
		fmt.Printf("wrote %d bytes\n", n)
	} else {
		buf := make([]byte, cfg.MaxPayloadSize)
		n, err := conn.Read(buf)
		if err != nil {
			log.WithError(err).Fatal("llping: read failed")
		}
		fmt.Printf("read %d bytes: %q\n", n, buf[:n])
	}

	if err := conn.Close(true); err != nil {
		log.WithError(err).Fatal("llping: close failed")
	}

	if peerDone != nil {
		<-peerDone
	}
}

// openLoopback opens cfg against one end of an in-process fault-injecting
// channel and runs the complementary role's entire Open/Write-or-Read/Close
// lifecycle on the other end in a goroutine, so llping -loop exercises both
// sides of the protocol as a single-process smoke test without a real
// cable. The caller must wait on the returned channel only after finishing
// its own side, since the peer's data-phase call blocks on the caller's.
func openLoopback(cfg linkconfig.Config, dropPct, corruptPct float64) (*datalink.Conn, chan struct{}, error) {
	fault := testutil.Fault{DropRate: dropPct / 100, CorruptRate: corruptPct / 100}
	a, b := testutil.NewChannel(fault)

	peerRole := linkconfig.Receiver
	if cfg.Role == linkconfig.Receiver {
		peerRole = linkconfig.Transmitter
	}
	peerCfg := cfg
	peerCfg.Role = peerRole

	openErr := make(chan error, 1)
	peerDone := make(chan struct{})
	go func() {
		defer close(peerDone)
		peerConn, err := datalink.OpenWithDevice(b, peerCfg)
		openErr <- err
		if err != nil {
			log.WithError(err).Error("llping: loopback peer open failed")
			return
		}
		if peerCfg.Role == linkconfig.Transmitter {
			if _, err := peerConn.Write([]byte("llping")); err != nil {
				log.WithError(err).Error("llping: loopback peer write failed")
			}
		} else {
			buf := make([]byte, peerCfg.MaxPayloadSize)
			if _, err := peerConn.Read(buf); err != nil {
				log.WithError(err).Error("llping: loopback peer read failed")
			}
		}
		if err := peerConn.Close(false); err != nil {
			log.WithError(err).Error("llping: loopback peer close failed")
		}
	}()

	conn, err := datalink.OpenWithDevice(a, cfg)
	if peerErr := <-openErr; err == nil && peerErr != nil {
		err = peerErr
	}
	if err != nil {
		return nil, nil, err
	}
	return conn, peerDone, nil
}
