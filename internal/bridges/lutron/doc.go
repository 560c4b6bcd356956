// Package lutron implements the hub connection and device synchronisation
// engine for a Lutron-style lighting hub that speaks JSON over MQTT.
//
// # Architecture
//
//	            lutron/status ──► liveness (heartbeat window)
//	  hub ──►   lutron/events ──► codec ──► device.Registry ──► listeners
//	            lutron/remote ──► codec ──► RemoteHandler
//	  hub ◄──   lutron/commands ◄── codec ◄── SetDesiredState / sync jobs
//
// The Engine owns exactly one Transport at a time. Every timed action
// (reconnect, heartbeat timeout, periodic refresh, staggered polls) is a
// keyed job on a scheduler.Scheduler, so tests drive time with a
// scheduler.FakeClock.
//
// # Wire format
//
//	{"cmd":"GetDevices","args":{}}
//	{"cmd":"RuntimePropertyQuery","args":{"Params":[[42,15,[1]]]}}
//	{"cmd":"GoToLevel","args":{"ObjectId":42,"ObjectType":15,"Fade":0,"Delay":0,"Level":32768}}
//
// Inbound ListDevices records carry ObjectId, SerialNumber and DeviceClass
// as decimal strings. A bad record is skipped, the rest are kept.
//
// # Usage
//
//	eng, err := lutron.New(lutron.Options{
//	    Config:     cfg,
//	    Dialer:     lutron.NewMQTTDialer(cfg.Hub, log),
//	    StatusSink: sink,
//	    Logger:     log,
//	})
//	eng.RegisterListener(&lutron.ListenerFuncs{Changed: onChange})
//	if err := eng.Start(ctx); err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
//	err = lutron.NewController(eng, 42).SetPercent(50)
package lutron
