package main

import (
	"flag"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to the config file")
	fakeHW := flag.Bool("fake-hardware", false, "run with in-memory camera and display (bench mode)")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := ensurePhotoDir(cfg.PhotoDir); err != nil {
		log.Fatalf("photo dir: %v", err)
	}

	var (
		disp Display
		cam  Camera
	)
	if *fakeHW {
		log.Println("running with fake hardware")
		disp = newFakeDisplay()
		cam = newFakeCamera()
	} else {
		disp, err = openHatDisplay(cfg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		cam = newRpicamCamera(cfg.CaptureCommand)
	}

	// Closing stop winds down all loops; poweringOff additionally runs
	// the configured power-off command after they have joined.
	stop := make(chan struct{})
	var stopOnce sync.Once
	var poweringOff atomic.Bool
	requestPowerOff := func() {
		poweringOff.Store(true)
		stopOnce.Do(func() { close(stop) })
	}

	ctrl := NewController(cam, cfg, requestPowerOff)

	var reader ButtonReader = disp
	if cfg.EvdevName != "" {
		kp := &keypadState{}
		go monitorKeypad(cfg.EvdevName, kp, stop)
		reader = comboReader{disp, kp}
	}
	poller := NewPoller(reader, cfg.doubleWindow(), cfg.pollPeriod())
	renderer := NewRenderer(ctrl, cam, disp, cfg)

	var wg sync.WaitGroup
	wg.Add(3)
	go poller.Run(stop, &wg)
	go ctrl.Run(poller.Events(), stop, &wg)
	go renderer.Run(stop, &wg)
	go httpServer(ctrl, cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Printf("received %v, shutting down", s)
		stopOnce.Do(func() { close(stop) })
	case <-stop:
	}

	// Join both loops before releasing the hardware so no capture or
	// delete is cut off mid-flight.
	wg.Wait()
	if err := cam.Close(); err != nil {
		log.Printf("camera close: %v", err)
	}
	if err := disp.Close(); err != nil {
		log.Printf("display close: %v", err)
	}

	if poweringOff.Load() && cfg.PowerOffCmd != "" {
		log.Println("powering off")
		if err := exec.Command("sh", "-c", cfg.PowerOffCmd).Run(); err != nil {
			log.Printf("power off: %v", err)
		}
	}
}
