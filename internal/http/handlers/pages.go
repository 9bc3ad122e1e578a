package handlers

// The pages below are static shells; all data comes from the JSON API.

const projectPageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Your project</title>
</head>
<body>
<main id="app">
  <p id="status">Loading your project...</p>
  <section id="project" hidden>
    <h1 id="business"></h1>
    <p id="meta"></p>
    <div id="thread" style="max-height:60vh;overflow-y:auto"></div>
    <p id="empty" hidden>No messages yet. Say hello and tell us about your project.</p>
    <form id="composer">
      <textarea id="draft" rows="3" maxlength="5000" placeholder="Write a message"></textarea>
      <button id="send" type="submit">Send</button>
      <p id="send-error" hidden></p>
    </form>
  </section>
  <section id="denied" hidden>
    <h1>Access denied</h1>
    <p>This link is not valid. Please use the link from your confirmation.</p>
  </section>
</main>
<script>
(function () {
  var POLL_MS = 5000;
  var leadId = decodeURIComponent(location.pathname.split('/').filter(Boolean).pop() || '');
  var token = new URLSearchParams(location.search).get('token') || '';
  var base = '/api/projects/' + encodeURIComponent(leadId);
  var q = '?token=' + encodeURIComponent(token);
` + threadScriptCommon + `
  var polling = false;
  var sending = false;
  var timer = null;
  var live = null;

  function draw() {
    drawThread($('thread'), function (m) { return m.sender === 'admin' ? 'Studio' : 'You'; });
  }

  function denied() {
    $('status').hidden = true;
    $('project').hidden = true;
    $('denied').hidden = false;
    stop();
    if (live) { live.close(); }
  }

  function load() {
    fetch(base + q, { cache: 'no-store' }).then(function (res) {
      if (res.status === 404) { denied(); return null; }
      if (!res.ok) { throw new Error('HTTP ' + res.status); }
      return res.json();
    }).then(function (data) {
      if (!data) { return; }
      $('status').hidden = true;
      $('project').hidden = false;
      $('business').textContent = data.lead.business_name;
      $('meta').textContent = data.lead.category + (data.lead.website_goal ? ' · ' + data.lead.website_goal : '');
      reconcile(data.messages || []);
      draw();
      start();
      connect();
    }).catch(function () {
      $('status').textContent = 'We could not load your project. Refresh to try again.';
    });
  }

  function poll() {
    if (polling || document.hidden) { return; }
    polling = true;
    fetch(base + '/messages' + q, { cache: 'no-store' }).then(function (res) {
      if (res.status === 404) { denied(); return null; }
      return res.ok ? res.json() : null;
    }).then(function (data) {
      if (data) { reconcile(data.messages || []); draw(); }
    }).catch(function () {}).then(function () { polling = false; });
  }

  function start() {
    if (timer === null && !live) { timer = setInterval(poll, POLL_MS); }
  }

  function stop() {
    if (timer !== null) { clearInterval(timer); timer = null; }
  }

  // Live push replaces the poll timer while the socket is open; polling
  // resumes whenever it is not.
  function connect() {
    if (live || document.hidden || !window.WebSocket) { return; }
    openLive(base + '/ws' + q, function (sock) {
      live = sock;
      stop();
      poll();
    }, function (msg) {
      upsert(msg);
      draw();
    }, function () {
      live = null;
      if (document.hidden || $('project').hidden) { return; }
      poll();
      start();
      setTimeout(connect, RECONNECT_MS);
    });
  }

  document.addEventListener('visibilitychange', function () {
    if (document.hidden) { stop(); if (live) { live.close(); } return; }
    if ($('project').hidden) { return; }
    poll();
    start();
    connect();
  });

  $('composer').addEventListener('submit', function (ev) {
    ev.preventDefault();
    var draft = $('draft').value;
    if (sending || !draft.trim()) { return; }
    sending = true;
    $('send').disabled = true;
    $('send-error').hidden = true;
    var local = addPending('client', draft.trim());
    $('draft').value = '';
    draw();
    fetch(base + '/messages' + q, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ content: draft })
    }).then(function (res) {
      if (!res.ok) { throw new Error('HTTP ' + res.status); }
      return res.json();
    }).then(function (msg) {
      settle(local, msg);
    }).catch(function () {
      dropPending(local);
      $('draft').value = draft;
      $('send-error').textContent = 'Your message was not sent. Please try again.';
      $('send-error').hidden = false;
    }).then(function () {
      sending = false;
      $('send').disabled = false;
      draw();
    });
  });

  load();
})();
</script>
</body>
</html>
`

// threadScriptCommon keeps one thread view: confirmed server messages plus
// local sends still in flight, merged by id. Every redraw that changes the
// list scrolls to the newest entry.
const threadScriptCommon = `
  var confirmed = [];
  var pending = [];
  var localSeq = 0;
  var drawn = '';
  var RECONNECT_MS = 30000;

  function $(id) { return document.getElementById(id); }

  function merged() {
    var ids = {};
    confirmed.forEach(function (m) { ids[m.id] = true; });
    return confirmed.concat(pending.filter(function (p) { return !p.id || !ids[p.id]; }));
  }

  function prunePending() {
    var ids = {};
    confirmed.forEach(function (m) { ids[m.id] = true; });
    pending = pending.filter(function (p) { return !p.id || !ids[p.id]; });
  }

  // The thread is append-only, so a shorter list is a stale read.
  function reconcile(list) {
    if (list.length >= confirmed.length) { confirmed = list; }
    prunePending();
  }

  function upsert(msg) {
    if (!msg || !msg.id) { return; }
    for (var i = 0; i < confirmed.length; i++) {
      if (confirmed[i].id === msg.id) { return; }
    }
    confirmed = confirmed.concat([msg]);
    prunePending();
  }

  function addPending(sender, content) {
    var local = { key: ++localSeq, sender: sender, content: content, pending: true };
    pending.push(local);
    return local;
  }

  function settle(local, msg) {
    local.id = msg.id;
    local.created_at = msg.created_at;
    local.pending = false;
    prunePending();
  }

  function dropPending(local) {
    pending = pending.filter(function (p) { return p.key !== local.key; });
  }

  function drawThread(box, label) {
    var all = merged();
    var sig = all.map(function (m) { return (m.id || 'local-' + m.key) + (m.pending ? '~' : ''); }).join(',');
    $('empty').hidden = all.length !== 0;
    if (sig === drawn) { return; }
    drawn = sig;
    box.textContent = '';
    all.forEach(function (m) {
      var row = document.createElement('div');
      row.className = 'msg ' + m.sender + (m.pending ? ' pending' : '');
      var who = document.createElement('strong');
      who.textContent = label(m);
      var body = document.createElement('p');
      body.textContent = m.content;
      var when = document.createElement('small');
      when.textContent = m.pending ? 'sending...' : new Date(m.created_at).toLocaleString();
      row.appendChild(who); row.appendChild(body); row.appendChild(when);
      box.appendChild(row);
    });
    box.scrollTop = box.scrollHeight;
  }

  function openLive(path, onOpen, onMessage, onDown) {
    var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var sock;
    try { sock = new WebSocket(scheme + location.host + path); } catch (e) { onDown(); return; }
    var opened = false;
    sock.onopen = function () { opened = true; onOpen(sock); };
    sock.onmessage = function (ev) {
      var frame;
      try { frame = JSON.parse(ev.data); } catch (e) { return; }
      if (frame.type === 'message') { onMessage(frame.message); }
    };
    sock.onclose = function () { if (opened) { onDown(); } };
  }
`

const adminScriptCommon = `
  function adminToken() {
    var t = sessionStorage.getItem('adminToken');
    if (!t) {
      t = (prompt('Admin token') || '').trim();
      if (t) { sessionStorage.setItem('adminToken', t); }
    }
    return t;
  }
  function api(path, opts) {
    opts = opts || {};
    opts.headers = Object.assign({ 'Authorization': 'Bearer ' + adminToken() }, opts.headers || {});
    opts.cache = 'no-store';
    return fetch(path, opts).then(function (res) {
      if (res.status === 401) { sessionStorage.removeItem('adminToken'); }
      return res;
    });
  }
`

const adminListPageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Leads</title>
</head>
<body>
<main>
  <h1>Leads</h1>
  <p id="status">Loading...</p>
  <table id="leads" hidden>
    <thead><tr><th>Business</th><th>Category</th><th>Email</th><th>Received</th></tr></thead>
    <tbody></tbody>
  </table>
</main>
<script>
(function () {
` + adminScriptCommon + `
  api('/api/admin/leads').then(function (res) {
    if (!res.ok) { throw new Error('HTTP ' + res.status); }
    return res.json();
  }).then(function (data) {
    var body = document.querySelector('#leads tbody');
    (data.leads || []).forEach(function (lead) {
      var tr = document.createElement('tr');
      var a = document.createElement('a');
      a.href = '/admin/leads/' + encodeURIComponent(lead.id);
      a.textContent = lead.business_name;
      var cells = [a, lead.category, lead.email, new Date(lead.created_at).toLocaleString()];
      cells.forEach(function (c) {
        var td = document.createElement('td');
        if (typeof c === 'string') { td.textContent = c; } else { td.appendChild(c); }
        tr.appendChild(td);
      });
      body.appendChild(tr);
    });
    document.getElementById('status').textContent = data.total + ' leads';
    document.getElementById('leads').hidden = false;
  }).catch(function () {
    document.getElementById('status').textContent = 'Could not load leads.';
  });
})();
</script>
</body>
</html>
`

const adminDetailPageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Conversation</title>
</head>
<body>
<main>
  <p><a href="/admin/leads">All leads</a></p>
  <h1 id="business">Loading...</h1>
  <dl id="details"></dl>
  <div id="thread" style="max-height:60vh;overflow-y:auto"></div>
  <p id="empty" hidden>No messages yet.</p>
  <form id="composer">
    <textarea id="draft" rows="3" maxlength="5000"></textarea>
    <button id="send" type="submit">Reply</button>
    <p id="send-error" hidden></p>
  </form>
</main>
<script>
(function () {
` + adminScriptCommon + `
  var POLL_MS = 5000;
  var leadId = decodeURIComponent(location.pathname.split('/').filter(Boolean).pop() || '');
  var base = '/api/admin/leads/' + encodeURIComponent(leadId);
` + threadScriptCommon + `
  var polling = false;
  var sending = false;
  var live = null;

  function draw() {
    drawThread($('thread'), function (m) { return m.sender === 'admin' ? 'Studio' : 'Client'; });
  }

  function details(lead) {
    $('business').textContent = lead.business_name;
    var dl = $('details');
    dl.textContent = '';
    [['Email', lead.email], ['Category', lead.category], ['Goal', lead.website_goal],
     ['Description', lead.description], ['Inspiration', lead.inspiration_template],
     ['Client link', lead.dashboard_url]].forEach(function (kv) {
      if (!kv[1]) { return; }
      var dt = document.createElement('dt'); dt.textContent = kv[0];
      var dd = document.createElement('dd'); dd.textContent = kv[1];
      dl.appendChild(dt); dl.appendChild(dd);
    });
  }

  function fetchLead(first) {
    if (polling) { return; }
    polling = true;
    api(base).then(function (res) {
      if (res.status === 404) {
        return res.json().then(function (body) { location.href = body.redirect || '/admin/leads'; return null; });
      }
      return res.ok ? res.json() : null;
    }).then(function (data) {
      if (!data) { return; }
      if (first) { details(data.lead); connect(); }
      reconcile(data.messages || []);
      draw();
    }).catch(function () {}).then(function () { polling = false; });
  }

  function connect() {
    if (live || document.hidden || !window.WebSocket) { return; }
    openLive(base + '/ws?access_token=' + encodeURIComponent(adminToken()), function (sock) {
      live = sock;
      fetchLead(false);
    }, function (msg) {
      upsert(msg);
      draw();
    }, function () {
      live = null;
      if (!document.hidden) { setTimeout(connect, RECONNECT_MS); }
    });
  }

  $('composer').addEventListener('submit', function (ev) {
    ev.preventDefault();
    var draft = $('draft').value;
    if (sending || !draft.trim()) { return; }
    sending = true;
    $('send').disabled = true;
    $('send-error').hidden = true;
    var local = addPending('admin', draft.trim());
    $('draft').value = '';
    draw();
    api(base + '/messages', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ content: draft })
    }).then(function (res) {
      if (!res.ok) { throw new Error('HTTP ' + res.status); }
      return res.json();
    }).then(function (msg) {
      settle(local, msg);
    }).catch(function () {
      dropPending(local);
      $('draft').value = draft;
      $('send-error').textContent = 'Reply not sent. Please try again.';
      $('send-error').hidden = false;
    }).then(function () {
      sending = false;
      $('send').disabled = false;
      draw();
    });
  });

  document.addEventListener('visibilitychange', function () {
    if (document.hidden) { if (live) { live.close(); } return; }
    fetchLead(false);
    connect();
  });

  fetchLead(true);
  setInterval(function () { if (!document.hidden && !live) { fetchLead(false); } }, POLL_MS);
})();
</script>
</body>
</html>
`
