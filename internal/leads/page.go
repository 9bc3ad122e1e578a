package leads

const startPageHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Start your website</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 0; padding: 32px; background: #f7f5f2; color: #2b2a28; }
    .wrap { max-width: 640px; margin: 0 auto; background: #fff; border-radius: 16px; padding: 24px; }
    label { display: block; margin-top: 16px; font-weight: 600; }
    input, select, textarea { width: 100%; padding: 10px; border: 1px solid #ddd; border-radius: 8px; box-sizing: border-box; }
    .field-error, .error { color: #b3261e; font-size: 13px; }
    button { margin-top: 24px; padding: 12px 20px; border: none; border-radius: 999px; background: #2b2a28; color: #fff; cursor: pointer; }
    button:disabled { opacity: 0.5; }
    #custom-wrap { display: none; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>Tell us about your business</h1>
    {{if .Error}}<p class="error" id="form-error">{{.Error}}</p>{{else}}<p class="error" id="form-error"></p>{{end}}
    <form id="intake" method="post" action="/start" novalidate>
      <label for="email">Email</label>
      <input id="email" name="email" type="email" required value="{{.Form.Email}}" />
      {{with index .Fields "email"}}<div class="field-error">{{.}}</div>{{end}}

      <label for="business_name">Business name</label>
      <input id="business_name" name="business_name" required value="{{.Form.BusinessName}}" />
      {{with index .Fields "business_name"}}<div class="field-error">{{.}}</div>{{end}}

      <label for="category">Category</label>
      <select id="category" name="category">
        <option value="">Choose one</option>
        {{$selected := .Form.Category}}{{range .Categories}}<option value="{{.}}"{{if eq . $selected}} selected{{end}}>{{.}}</option>{{end}}
      </select>
      <div id="custom-wrap">
        <label for="custom_category">Your category</label>
        <input id="custom_category" name="custom_category" value="{{.Form.CustomCategory}}" />
      </div>
      {{with index .Fields "category"}}<div class="field-error" id="category-error">{{.}}</div>{{else}}<div class="field-error" id="category-error"></div>{{end}}

      <label for="website_goal">What should the website do for you?</label>
      <input id="website_goal" name="website_goal" value="{{.Form.WebsiteGoal}}" />

      <label for="description">Anything else?</label>
      <textarea id="description" name="description" rows="4">{{.Form.Description}}</textarea>

      <input type="hidden" id="inspiration_template" name="inspiration_template" value="{{.Form.InspirationTemplate}}" />
      <p id="inspiration-note"></p>

      <button id="submit" type="submit">Send</button>
    </form>
  </div>
  <script>
    const form = document.getElementById('intake');
    const category = document.getElementById('category');
    const custom = document.getElementById('custom_category');
    const customWrap = document.getElementById('custom-wrap');
    const categoryError = document.getElementById('category-error');
    const formError = document.getElementById('form-error');
    const submit = document.getElementById('submit');
    const inspiration = document.getElementById('inspiration_template');

    function syncCustom() {
      customWrap.style.display = category.value === 'Other' ? 'block' : 'none';
    }
    category.addEventListener('change', syncCustom);
    syncCustom();

    const saved = window.localStorage.getItem('inspirationTemplate');
    if (saved && !inspiration.value) {
      inspiration.value = saved;
      document.getElementById('inspiration-note').textContent = 'Inspired by: ' + saved;
    }

    function resolvedCategory() {
      return category.value === 'Other' ? custom.value.trim() : category.value.trim();
    }

    form.addEventListener('submit', async (event) => {
      event.preventDefault();
      categoryError.textContent = '';
      formError.textContent = '';
      if (!resolvedCategory()) {
        categoryError.textContent = 'Please choose a business category';
        return;
      }
      submit.disabled = true;
      const payload = Object.fromEntries(new FormData(form).entries());
      try {
        const res = await fetch('/api/intake', {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify(payload),
        });
        const body = await res.json();
        if (res.status === 201) {
          window.localStorage.removeItem('inspirationTemplate');
          window.location.assign(body.redirect_url);
          return;
        }
        formError.textContent = body.error || 'Something went wrong. Please try again.';
      } catch (err) {
        formError.textContent = 'Something went wrong. Please try again.';
      }
      submit.disabled = false;
    });
  </script>
</body>
</html>
`
