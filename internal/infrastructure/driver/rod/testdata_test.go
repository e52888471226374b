package rod

// Fixtures served by httptest in the adapter tests.
const (
	BasicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
</body>
</html>`

	FormHTML = `<!DOCTYPE html>
<html>
<body>
	<form id="testForm">
		<input id="username" type="text" name="username" value="preset" />
		<input id="password" type="password" name="password" />
		<input id="remember" type="checkbox" name="remember" checked />
		<button id="submit" type="submit" disabled>Submit</button>
	</form>
</body>
</html>`

	InteractiveHTML = `<!DOCTYPE html>
<html>
<body>
	<button id="btn">Click Me</button>
	<div id="result"></div>
	<ul id="menu">
		<li class="item">One</li>
		<li class="item">Two</li>
		<li class="item" style="display:none">Three</li>
	</ul>
	<a href="#details" id="more">Read more</a>
	<script>
		document.getElementById('btn').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Clicked!';
		});
	</script>
</body>
</html>`

	DragHTML = `<!DOCTYPE html>
<html>
<body>
	<div id="src" style="width:50px;height:50px;background:red"></div>
	<div id="dst" style="width:50px;height:50px;margin-top:100px;background:blue"></div>
	<div id="log"></div>
	<script>
		let down = false;
		document.getElementById('src').addEventListener('mousedown', () => { down = true; });
		document.getElementById('dst').addEventListener('mouseup', () => {
			if (down) document.getElementById('log').textContent = 'dropped';
		});
	</script>
</body>
</html>`
)
