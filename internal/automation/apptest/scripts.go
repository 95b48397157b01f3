package apptest

// describeScript returns a function summarising a value as a DevTools
// remote object: type, subtype, className, description and, for primitives
// or when byValue is set, its JSON encoding.
const describeScript = `(function (v, byValue) {
	var t = typeof v;
	if (v === null) return { type: "object", subtype: "null", description: "null", json: "null" };
	if (t === "undefined") return { type: "undefined" };
	if (t === "function") {
		return { type: "function", className: "Function", description: "function " + (v.name || "") + "() { [native code] }" };
	}
	if (t === "object") {
		var r = { type: "object" };
		if (v instanceof Error) {
			r.subtype = "error";
			r.className = v.name;
			r.description = v.name + ": " + v.message;
		} else if (Array.isArray(v)) {
			r.subtype = "array";
			r.className = "Array";
			r.description = "Array(" + v.length + ")";
		} else if (v instanceof Promise) {
			r.subtype = "promise";
			r.className = "Promise";
			r.description = "Promise";
		} else if (v instanceof Map) {
			r.subtype = "map";
			r.className = "Map";
			r.description = "Map(" + v.size + ")";
		} else {
			r.className = (v.constructor && v.constructor.name) || "Object";
			r.description = r.className;
		}
		if (byValue) {
			try { r.json = JSON.stringify(v); } catch (e) { r.json = "{}"; }
			if (r.json === undefined) r.json = "{}";
		}
		return r;
	}
	var out = { type: t, description: String(v) };
	var j = JSON.stringify(v);
	if (j !== undefined) out.json = j;
	return out;
})`

// appScript installs window.MailApp. Drafts live in a Map keyed
// "draft-N"; every draft exposes subject, to, cc, bcc and body
// properties, their setters, save(), isDirty and discard().
const appScript = `(function (window, opts) {
	var sessions = new Map();
	var seq = 0;

	function later(ms, fn) {
		if (ms > 0) setTimeout(fn, ms); else fn();
	}

	function recipients(v) {
		var list = Array.isArray(v) ? v : String(v).split(/[,;]/);
		var out = [];
		for (var i = 0; i < list.length; i++) {
			var item = list[i];
			if (item && typeof item === "object") item = item.address || item.email || "";
			item = String(item).trim();
			if (item) out.push({ address: item });
		}
		return out;
	}

	function Draft(key) {
		this.id = key;
		this.ready = opts.initDelay <= 0;
		this.subject = "";
		this.to = [];
		this.cc = [];
		this.bcc = [];
		this.body = "";
		this.isDirty = false;
		this.saves = 0;
		this.writes = 0;
		this.dropped = 0;
		var self = this;
		if (!this.ready) setTimeout(function () { self.ready = true; }, opts.initDelay);
	}

	Draft.prototype.apply = function (fn) {
		if (!this.ready) {
			this.dropped++;
			return;
		}
		var self = this;
		later(opts.renderDelay, function () {
			fn(self);
			self.writes++;
			self.isDirty = true;
		});
	};
	Draft.prototype.setSubject = function (v) { this.apply(function (d) { d.subject = String(v); }); };
	Draft.prototype.setTo = function (v) { this.apply(function (d) { d.to = recipients(v); }); };
	Draft.prototype.setCc = function (v) { this.apply(function (d) { d.cc = recipients(v); }); };
	Draft.prototype.setBcc = function (v) { this.apply(function (d) { d.bcc = recipients(v); }); };
	Draft.prototype.setBody = function (v) {
		this.apply(function (d) { d.body = '<div class="editor">' + v + '</div>'; });
	};
	Draft.prototype.save = function () {
		var self = this;
		return new Promise(function (resolve) {
			later(opts.saveDelay, function () {
				self.saves++;
				if (opts.persistDelay > 0) {
					setTimeout(function () { self.isDirty = false; }, opts.persistDelay);
				} else {
					self.isDirty = false;
				}
				resolve({ saved: true });
			});
		});
	};
	if (!opts.noDraftClose) {
		Draft.prototype.discard = function () {
			var key = this.id;
			later(opts.closeDelay, function () { sessions.delete(key); });
		};
	}

	var composer = {
		sessions: sessions,
		newCompose: function () {
			if (opts.singleCompose && sessions.size > 0) return;
			var key = "draft-" + (++seq);
			if (opts.reuseKeys) {
				for (var n = 1; sessions.has("draft-" + n); n++) {}
				key = "draft-" + n;
			}
			later(opts.openDelay, function () { sessions.set(key, new Draft(key)); });
		},
		closeCompose: function (key) {
			later(opts.closeDelay, function () { sessions.delete(key); });
		}
	};

	window.MailApp = { composer: composer };
	window.focused = false;
	window.focus = function () { window.focused = true; };
})`
