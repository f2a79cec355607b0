package constant

// PlaygroundHTML is the static manual-testing page served at "/". It posts
// to /chat and understands both the buffered JSON reply and the SSE frames.
const PlaygroundHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>Recipe RAG Playground</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; }
  textarea { width: 100%; min-height: 4rem; font-size: 1rem; }
  fieldset { border: 1px solid #ccc; margin: 1rem 0; }
  #answer { white-space: pre-wrap; background: #f6f6f6; padding: 1rem; min-height: 6rem; }
  #docs { font-size: .85rem; color: #555; }
  button { padding: .5rem 1.5rem; font-size: 1rem; }
</style>
</head>
<body>
<h1>Recipe RAG Playground</h1>
<textarea id="query" placeholder="例如：我不喜欢吃辣，有什么推荐？"></textarea>
<fieldset>
  <label>top_k <input id="topk" type="number" min="1" max="50" style="width:4rem"></label>
  <label><input id="stream" type="checkbox" checked> stream</label>
  <label><input id="rerank" type="checkbox" checked> use_rerank</label>
  <label>rerank_mode
    <select id="mode"><option value="">default</option><option>cross</option><option>bi</option></select>
  </label>
</fieldset>
<button id="send">发送</button>
<h2>回答</h2>
<div id="answer"></div>
<h2>检索文档</h2>
<div id="docs"></div>
<script>
const $ = (id) => document.getElementById(id);

function renderDocs(docs) {
  $('docs').innerHTML = (docs || []).map((d, i) =>
    '<p>[' + (i + 1) + '] ' + (d.title || d.id || 'Doc-' + (i + 1)) +
    (d.score != null ? ' (score=' + d.score.toFixed(3) + ')' : '') + '</p>').join('');
}

async function send() {
  const body = { query: $('query').value, stream: $('stream').checked, use_rerank: $('rerank').checked };
  if ($('topk').value) body.top_k = Number($('topk').value);
  if ($('mode').value) body.rerank_mode = $('mode').value;
  $('answer').textContent = '';
  $('docs').textContent = '';

  const resp = await fetch('/chat', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(body),
  });

  if (!body.stream) {
    const data = await resp.json();
    if (!resp.ok) { $('answer').textContent = '错误: ' + (data.message || resp.status); return; }
    $('answer').textContent = data.answer;
    renderDocs(data.documents);
    return;
  }

  const reader = resp.body.getReader();
  const decoder = new TextDecoder();
  let buffer = '';
  for (;;) {
    const { done, value } = await reader.read();
    if (done) break;
    buffer += decoder.decode(value, { stream: true });
    let sep;
    while ((sep = buffer.indexOf('\n\n')) >= 0) {
      const frame = buffer.slice(0, sep);
      buffer = buffer.slice(sep + 2);
      const event = (frame.match(/^event: (.*)$/m) || [])[1];
      const data = frame.split('\n').filter(l => l.startsWith('data: ')).map(l => l.slice(6)).join('\n');
      if (event === 'meta') renderDocs(JSON.parse(data).documents);
      else if (event === 'delta') $('answer').textContent += data;
      else if (event === 'end') $('answer').textContent = JSON.parse(data).answer;
      else if (event === 'error') $('answer').textContent += '\n[错误] ' + JSON.parse(data).message;
    }
  }
}

$('send').addEventListener('click', send);
</script>
</body>
</html>
`
