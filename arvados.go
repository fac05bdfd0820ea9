// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"git.arvados.org/arvados.git/lib/cmd"
	"git.arvados.org/arvados.git/sdk/go/arvados"
	"git.arvados.org/arvados.git/sdk/go/arvadosclient"
	"git.arvados.org/arvados.git/sdk/go/keepclient"
	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/websocket"
)

const runtimeImage = "percnorm-runtime"

type eventMessage struct {
	Status     int
	ObjectUUID string `json:"object_uuid"`
	EventType  string `json:"event_type"`
	Properties struct {
		Text string
	}
}

// containerWatcher relays websocket events for one container to a
// channel, reconnecting as needed until Close is called.
type containerWatcher struct {
	client *arvados.Client
	uuid   string
	events chan eventMessage
	done   chan struct{}
	once   sync.Once
}

func watchContainer(client *arvados.Client, uuid string) *containerWatcher {
	w := &containerWatcher{
		client: client,
		uuid:   uuid,
		events: make(chan eventMessage, 100),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *containerWatcher) Close() {
	w.once.Do(func() { close(w.done) })
}

func (w *containerWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		default:
		}
		err := w.listen()
		if err != nil {
			log.Warnf("websocket: %s", err)
		}
		select {
		case <-w.done:
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (w *containerWatcher) listen() error {
	var cluster arvados.Cluster
	err := w.client.RequestAndDecode(&cluster, "GET", arvados.EndpointConfigGet.Path, nil, nil)
	if err != nil {
		return fmt.Errorf("error getting cluster config: %w", err)
	}
	wsURL := cluster.Services.Websocket.ExternalURL
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)
	wsURL.Path = "/websocket"
	wsURL.RawQuery = url.Values{"api_token": []string{w.client.AuthToken}}.Encode()
	conn, err := websocket.Dial(wsURL.String(), "", cluster.Services.Controller.ExternalURL.String())
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-w.done
		conn.Close()
	}()
	err = json.NewEncoder(conn).Encode(map[string]interface{}{
		"method": "subscribe",
		"filters": [][]interface{}{
			{"object_uuid", "=", w.uuid},
			{"event_type", "in", []string{"stderr", "crunch-run", "update"}},
		},
	})
	if err != nil {
		return err
	}
	dec := json.NewDecoder(conn)
	for {
		var msg eventMessage
		if err := dec.Decode(&msg); err != nil {
			select {
			case <-w.done:
				return nil
			default:
				return fmt.Errorf("error decoding websocket message: %w", err)
			}
		}
		select {
		case w.events <- msg:
		case <-w.done:
			return nil
		}
	}
}

type arvadosContainerRunner struct {
	Client      *arvados.Client
	Name        string
	ProjectUUID string
	VCPUs       int
	RAM         int64
	Args        []string
	Mounts      map[string]map[string]interface{}
	Priority    int
	Preemptible bool
}

func (runner *arvadosContainerRunner) Run() (string, error) {
	return runner.RunContext(context.Background())
}

// RunContext submits a container request that runs this program
// with runner.Args, waits for it to finish, and returns the UUID of
// the output collection.
func (runner *arvadosContainerRunner) RunContext(ctx context.Context) (string, error) {
	if runner.ProjectUUID == "" {
		return "", errors.New("cannot run arvados container: ProjectUUID not provided")
	}
	cmdUUID, err := runner.makeCommandCollection()
	if err != nil {
		return "", err
	}
	mounts := map[string]map[string]interface{}{
		"/mnt/output": {"kind": "collection", "writable": true},
		"/mnt/cmd":    {"kind": "collection", "uuid": cmdUUID},
	}
	for path, mnt := range runner.Mounts {
		mounts[path] = mnt
	}
	priority := runner.Priority
	if priority < 1 {
		priority = 500
	}
	rc := arvados.RuntimeConstraints{
		VCPUs:        runner.VCPUs,
		RAM:          runner.RAM,
		KeepCacheRAM: (1 << 26) * 2 * int64(runner.VCPUs),
	}
	var cr arvados.ContainerRequest
	err = runner.Client.RequestAndDecodeContext(ctx, &cr, "POST", "arvados/v1/container_requests", nil, map[string]interface{}{
		"container_request": map[string]interface{}{
			"owner_uuid":          runner.ProjectUUID,
			"name":                runner.Name,
			"container_image":     runtimeImage,
			"command":             append([]string{"/mnt/cmd/percnorm"}, runner.Args...),
			"mounts":              mounts,
			"use_existing":        true,
			"output_path":         "/mnt/output",
			"runtime_constraints": rc,
			"priority":            priority,
			"state":               arvados.ContainerRequestStateCommitted,
			"scheduling_parameters": arvados.SchedulingParameters{
				Preemptible: runner.Preemptible,
				Partitions:  []string{},
			},
			"environment": map[string]string{
				"GOMAXPROCS": fmt.Sprintf("%d", rc.VCPUs),
			},
			"container_count_max": 1,
		},
	})
	if err != nil {
		return "", err
	}
	log.Printf("container request UUID: %s", cr.UUID)

	var watcher *containerWatcher
	defer func() {
		if watcher != nil {
			watcher.Close()
		}
	}()
	var events <-chan eventMessage
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	lastState := cr.State
	refresh := func() {
		err := runner.Client.RequestAndDecodeContext(ctx, &cr, "GET", "arvados/v1/container_requests/"+cr.UUID, nil, nil)
		if err != nil {
			log.Printf("error getting container request: %s", err)
			return
		}
		if cr.State != lastState {
			log.Printf("container request state: %s", cr.State)
			lastState = cr.State
		}
		if cr.ContainerUUID != "" && (watcher == nil || watcher.uuid != cr.ContainerUUID) {
			if watcher != nil {
				watcher.Close()
			}
			log.Printf("container UUID: %s", cr.ContainerUUID)
			watcher = watchContainer(runner.Client, cr.ContainerUUID)
			events = watcher.events
		}
	}
	refresh()
	for cr.State != arvados.ContainerRequestStateFinal {
		select {
		case <-ctx.Done():
			err := runner.Client.RequestAndDecode(&cr, "PATCH", "arvados/v1/container_requests/"+cr.UUID, nil, map[string]interface{}{
				"container_request": map[string]interface{}{
					"priority": 0,
				},
			})
			if err != nil {
				log.Errorf("error while trying to cancel container request %s: %s", cr.UUID, err)
			}
			return "", ctx.Err()
		case <-ticker.C:
			refresh()
		case msg := <-events:
			switch msg.EventType {
			case "update":
				refresh()
			case "stderr", "crunch-run":
				for _, line := range strings.Split(strings.TrimRight(msg.Properties.Text, "\n"), "\n") {
					log.Print(line)
				}
			}
		}
	}

	var c arvados.Container
	err = runner.Client.RequestAndDecode(&c, "GET", "arvados/v1/containers/"+cr.ContainerUUID, nil, nil)
	if err != nil {
		return "", err
	} else if c.State != arvados.ContainerStateComplete {
		return "", fmt.Errorf("container did not complete: %s", c.State)
	} else if c.ExitCode != 0 {
		return "", fmt.Errorf("container exited %d", c.ExitCode)
	}
	return cr.OutputUUID, nil
}

var collectionInPathRe = regexp.MustCompile(`^(.*/)?([0-9a-f]{32}\+[0-9]+|[0-9a-z]{5}-[0-9a-z]{5}-[0-9a-z]{15})(/.*)?$`)

// TranslatePaths adds a mount for each collection referenced in
// paths, and rewrites the paths to point into the mounts.
func (runner *arvadosContainerRunner) TranslatePaths(paths ...*string) error {
	if runner.Mounts == nil {
		runner.Mounts = make(map[string]map[string]interface{})
	}
	for _, path := range paths {
		if *path == "" || *path == "-" {
			continue
		}
		m := collectionInPathRe.FindStringSubmatch(*path)
		if m == nil {
			return fmt.Errorf("cannot find uuid in path: %q", *path)
		}
		collID := m[2]
		if _, ok := runner.Mounts["/mnt/"+collID]; !ok {
			mnt := map[string]interface{}{"kind": "collection"}
			if len(collID) == 27 {
				mnt["uuid"] = collID
			} else {
				mnt["portable_data_hash"] = collID
			}
			runner.Mounts["/mnt/"+collID] = mnt
		}
		*path = "/mnt/" + collID + m[3]
	}
	return nil
}

var mtxMakeCommandCollection sync.Mutex

// makeCommandCollection returns the UUID of a collection containing
// the running executable, creating one if needed.
func (runner *arvadosContainerRunner) makeCommandCollection() (string, error) {
	mtxMakeCommandCollection.Lock()
	defer mtxMakeCommandCollection.Unlock()
	exe, err := ioutil.ReadFile("/proc/self/exe")
	if err != nil {
		return "", err
	}
	b2 := fmt.Sprintf("%x", blake2b.Sum256(exe))
	cname := "percnorm " + cmd.Version.String()
	var existing arvados.CollectionList
	err = runner.Client.RequestAndDecode(&existing, "GET", "arvados/v1/collections", nil, arvados.ListOptions{
		Limit: 1,
		Count: "none",
		Filters: []arvados.Filter{
			{Attr: "name", Operator: "=", Operand: cname},
			{Attr: "owner_uuid", Operator: "=", Operand: runner.ProjectUUID},
			{Attr: "properties.blake2b", Operator: "=", Operand: b2},
		},
	})
	if err != nil {
		return "", err
	}
	if len(existing.Items) > 0 {
		log.Printf("using percnorm binary in existing collection %s", existing.Items[0].UUID)
		return existing.Items[0].UUID, nil
	}
	ac, err := arvadosclient.New(runner.Client)
	if err != nil {
		return "", err
	}
	var coll arvados.Collection
	fs, err := coll.FileSystem(runner.Client, keepclient.New(ac))
	if err != nil {
		return "", err
	}
	f, err := fs.OpenFile("percnorm", os.O_CREATE|os.O_WRONLY, 0777)
	if err != nil {
		return "", err
	}
	_, err = f.Write(exe)
	if err != nil {
		return "", err
	}
	err = f.Close()
	if err != nil {
		return "", err
	}
	mtxt, err := fs.MarshalManifest(".")
	if err != nil {
		return "", err
	}
	err = runner.Client.RequestAndDecode(&coll, "POST", "arvados/v1/collections", nil, map[string]interface{}{
		"collection": map[string]interface{}{
			"owner_uuid":    runner.ProjectUUID,
			"manifest_text": mtxt,
			"name":          cname,
			"properties":    map[string]interface{}{"blake2b": b2},
		},
	})
	if err != nil {
		return "", err
	}
	log.Printf("stored percnorm binary in new collection %s", coll.UUID)
	return coll.UUID, nil
}

var (
	siteFS    arvados.CustomFileSystem
	siteFSMtx sync.Mutex
)

// open returns a reader for the given file, using the arvados API
// instead of arv-mount/fuse if ARVADOS_API_HOST is set and fnm
// refers to a collection.
func open(fnm string) (io.ReadCloser, error) {
	if fnm == "-" {
		return ioutil.NopCloser(os.Stdin), nil
	}
	m := collectionInPathRe.FindStringSubmatch(fnm)
	if os.Getenv("ARVADOS_API_HOST") == "" || m == nil {
		return os.Open(fnm)
	}
	siteFSMtx.Lock()
	defer siteFSMtx.Unlock()
	if siteFS == nil {
		log.Info("setting up Arvados client")
		client := arvados.NewClientFromEnv()
		ac, err := arvadosclient.New(client)
		if err != nil {
			return nil, err
		}
		kc := keepclient.New(ac)
		kc.HTTPClient = arvados.DefaultSecureClient
		siteFS = client.SiteFileSystem(kc)
	}
	log.Infof("reading %q from %s using Arvados client", m[3], m[2])
	return siteFS.Open("by_id/" + m[2] + m[3])
}

// zopen is like open, but transparently decompresses the input if
// fnm ends with ".gz".
func zopen(fnm string) (io.ReadCloser, error) {
	f, err := open(fnm)
	if err != nil || !strings.HasSuffix(fnm, ".gz") {
		return f, err
	}
	rdr, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipr{rdr, f}, nil
}

// gzipr wraps a ReadCloser and a Closer, presenting a single Close()
// method that closes both wrapped objects.
type gzipr struct {
	io.ReadCloser
	io.Closer
}

func (gr gzipr) Close() error {
	e1 := gr.ReadCloser.Close()
	e2 := gr.Closer.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

// zcreate creates the named output file, compressing the output if
// fnm ends with ".gz". If fnm is "-", output goes to stdout.
func zcreate(fnm string, stdout io.Writer) (io.WriteCloser, error) {
	var f io.WriteCloser
	if fnm == "-" {
		f = nopCloser{stdout}
	} else {
		var err error
		f, err = os.OpenFile(fnm, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(fnm, ".gz") {
		return f, nil
	}
	return gzipw{pgzip.NewWriter(f), f}, nil
}

type gzipw struct {
	*pgzip.Writer
	f io.Closer
}

func (gw gzipw) Close() error {
	e1 := gw.Writer.Close()
	e2 := gw.f.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
