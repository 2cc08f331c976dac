package browser

import "fmt"

// The listing site renders its search results client-side from the Next.js
// payload at window.__NEXT_DATA__.props.pageProps.

// PagePropsScript evaluates to the pageProps object, or null while it is absent.
const PagePropsScript = `(() => {
	const d = window.__NEXT_DATA__;
	return d && d.props && d.props.pageProps ? d.props.pageProps : null;
})()`

// PagePropsJSONScript evaluates to the serialized pageProps, or null while it is absent.
const PagePropsJSONScript = `(() => {
	const d = window.__NEXT_DATA__;
	return d && d.props && d.props.pageProps ? JSON.stringify(d.props.pageProps) : null;
})()`

// xpathLookup is the JS fragment resolving the first node for an XPath.
func xpathLookup(xpath string) string {
	return fmt.Sprintf(
		`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
		xpath)
}

func visibleScript(xpath string) string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.visibility === 'hidden' || style.display === 'none') return false;
	return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})()`, xpathLookup(xpath))
}

func scrollScript(xpath string) string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	el.scrollIntoView(true);
	return true;
})()`, xpathLookup(xpath))
}

// clickScript clicks through JS so overlays covering the control do not intercept it.
func clickScript(xpath string) string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	el.click();
	return true;
})()`, xpathLookup(xpath))
}
